package schedule

import (
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

func TestBuildIndex_KeysAndOrdering(t *testing.T) {
	d := day(2026, time.March, 9)
	appts := []model.Appointment{
		appt("late", d, 10*60+45, 30, model.StatusConfirmed),
		appt("early", d, 10*60+15, 30, model.StatusConfirmed),
		appt("other-hour", d, 14*60, 30, model.StatusConfirmed),
		appt("other-day", day(2026, time.March, 10), 10*60, 30, model.StatusConfirmed),
	}

	ix := BuildIndex(appts)
	if ix.Len() != 4 {
		t.Fatalf("index holds %d appointments, want 4", ix.Len())
	}

	cell := ix.At(SlotKey{Year: 2026, Month: time.March, Day: 9, Hour: 10})
	if len(cell) != 2 {
		t.Fatalf("10:00 cell holds %d appointments, want 2", len(cell))
	}
	if cell[0].ID != "early" || cell[1].ID != "late" {
		t.Fatalf("cell order = %s,%s, want early,late", cell[0].ID, cell[1].ID)
	}

	// Every appointment appears under its own key and nowhere else.
	for _, a := range appts {
		own := SlotKeyFor(a)
		found := false
		for _, cellAppt := range ix.At(own) {
			if cellAppt.ID == a.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("appointment %s missing from its own cell %+v", a.ID, own)
		}
	}
	for hour := 0; hour < 24; hour++ {
		key := SlotKey{Year: 2026, Month: time.March, Day: 9, Hour: hour}
		for _, a := range ix.At(key) {
			if SlotKeyFor(a) != key {
				t.Fatalf("appointment %s filed under foreign key %+v", a.ID, key)
			}
		}
	}
}

func TestBuildIndex_TieOrderStable(t *testing.T) {
	d := day(2026, time.March, 9)
	appts := []model.Appointment{
		appt("first", d, 600, 30, model.StatusConfirmed),
		appt("second", d, 600, 30, model.StatusConfirmed),
	}
	ix := BuildIndex(appts)
	cell := ix.At(SlotKey{Year: 2026, Month: time.March, Day: 9, Hour: 10})
	if len(cell) != 2 || cell[0].ID != "first" || cell[1].ID != "second" {
		t.Fatalf("equal start times must keep insertion order, got %+v", cell)
	}
}

func TestBuildIndex_DayCountsExcludeCancelled(t *testing.T) {
	d := day(2026, time.March, 9)
	appts := []model.Appointment{
		appt("a1", d, 9*60, 30, model.StatusConfirmed),
		appt("a2", d, 10*60, 30, model.StatusCancelled),
		appt("a3", d, 11*60, 30, model.StatusPending),
		appt("a4", day(2026, time.March, 10), 9*60, 30, model.StatusNoShow),
	}

	ix := BuildIndex(appts)
	if got := ix.CountOn(DayKeyFor(d)); got != 2 {
		t.Fatalf("day count = %d, want 2 (cancelled excluded)", got)
	}
	if got := ix.CountOn(DayKeyFor(day(2026, time.March, 10))); got != 1 {
		t.Fatalf("day count = %d, want 1 (no-show still occupies)", got)
	}

	// Cancelled rows stay visible in the hour cell for history.
	cell := ix.At(SlotKey{Year: 2026, Month: time.March, Day: 9, Hour: 10})
	if len(cell) != 1 || cell[0].ID != "a2" {
		t.Fatalf("cancelled appointment missing from its cell: %+v", cell)
	}
}

func TestBuildIndex_Rebuild(t *testing.T) {
	d := day(2026, time.March, 9)
	appts := []model.Appointment{
		appt("a1", d, 9*60, 30, model.StatusConfirmed),
	}
	first := BuildIndex(appts)
	second := BuildIndex(appts)
	if first.Len() != second.Len() || first.CountOn(DayKeyFor(d)) != second.CountOn(DayKeyFor(d)) {
		t.Fatalf("rebuilding the index over the same input must be idempotent")
	}
}
