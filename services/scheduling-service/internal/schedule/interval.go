package schedule

import (
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

// Interval is a half-open [Start, End) span in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

func NewInterval(startMinute, durationMins int) Interval {
	return Interval{Start: startMinute, End: startMinute + durationMins}
}

// Overlaps tests half-open overlap: [a,b) and [c,d) share an instant iff
// a < d && c < b. The test is symmetric.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

func intervalOf(a model.Appointment) Interval {
	return NewInterval(a.StartMinute, a.DurationMins)
}

// Window is the clinic operating window for one day, e.g. 08:00-21:00.
type Window struct {
	OpenMinute  int
	CloseMinute int
}

func (w Window) Contains(iv Interval) bool {
	return iv.Start >= w.OpenMinute && iv.End <= w.CloseMinute
}

// FindConflict returns the first appointment on date whose interval overlaps
// iv. Cancelled appointments never conflict; excludeID skips the appointment
// being moved so it cannot conflict with itself. When both sides carry a staff
// id the check is partitioned per staff member; an appointment without a staff
// assignment blocks every column.
func FindConflict(date time.Time, iv Interval, staffID, excludeID string, appts []model.Appointment) (model.Appointment, bool) {
	for _, e := range appts {
		if e.ID != "" && e.ID == excludeID {
			continue
		}
		if !e.Status.OccupiesSlot() {
			continue
		}
		if !SameDay(e.Date, date) {
			continue
		}
		if staffID != "" && e.StaffID != "" && e.StaffID != staffID {
			continue
		}
		if iv.Overlaps(intervalOf(e)) {
			return e, true
		}
	}
	return model.Appointment{}, false
}
