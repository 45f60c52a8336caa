package schedule

import (
	"sort"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

// SlotKey addresses one hour cell of the calendar grid. Minutes are not part
// of the key; vertical placement inside the cell is a rendering concern.
type SlotKey struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

func SlotKeyFor(a model.Appointment) SlotKey {
	y, m, d := a.Date.Date()
	return SlotKey{Year: y, Month: m, Day: d, Hour: a.StartMinute / 60}
}

func DayKeyFor(date time.Time) DayKey {
	y, m, d := date.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Index is a read-only lookup over a snapshot of appointments so that
// rendering a week or day grid does not rescan the whole list per cell.
// Rebuilding it is idempotent and side-effect free.
type Index struct {
	cells     map[SlotKey][]model.Appointment
	dayCounts map[DayKey]int
}

// BuildIndex groups appointments by (year, month, day, hour). Cell order is
// start time ascending with insertion order breaking ties. Cancelled
// appointments stay in the cells (historical popovers) but are excluded from
// the per-day counts used for badge rendering.
func BuildIndex(appts []model.Appointment) *Index {
	ix := &Index{
		cells:     make(map[SlotKey][]model.Appointment),
		dayCounts: make(map[DayKey]int),
	}
	for _, a := range appts {
		key := SlotKeyFor(a)
		ix.cells[key] = append(ix.cells[key], a)
		if a.Status.OccupiesSlot() {
			ix.dayCounts[DayKeyFor(a.Date)]++
		}
	}
	for key := range ix.cells {
		cell := ix.cells[key]
		sort.SliceStable(cell, func(i, j int) bool {
			return cell[i].StartMinute < cell[j].StartMinute
		})
	}
	return ix
}

// At returns the appointments in one hour cell, ordered by start time.
func (ix *Index) At(key SlotKey) []model.Appointment {
	return ix.cells[key]
}

// CountOn returns the number of non-cancelled appointments on a day.
func (ix *Index) CountOn(key DayKey) int {
	return ix.dayCounts[key]
}

// DayCounts exposes the per-day badge counts. The map must not be mutated.
func (ix *Index) DayCounts() map[DayKey]int {
	return ix.dayCounts
}

// Len returns the total number of indexed appointments.
func (ix *Index) Len() int {
	n := 0
	for _, cell := range ix.cells {
		n += len(cell)
	}
	return n
}
