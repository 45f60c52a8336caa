package schedule

import (
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func appt(id string, date time.Time, startMinute, durationMins int, status model.Status) model.Appointment {
	return model.Appointment{
		ID:           id,
		Date:         date,
		StartMinute:  startMinute,
		DurationMins: durationMins,
		Status:       status,
	}
}

func TestSlotsForDay_SingleBooking(t *testing.T) {
	// Clinic open 08:00-20:00, 30 min service, 30 min grid, one booking at 10:00.
	window := Window{OpenMinute: 8 * 60, CloseMinute: 20 * 60}
	existing := []model.Appointment{
		appt("a1", day(2026, time.March, 9), 600, 30, model.StatusConfirmed),
	}

	slots := SlotsForDay(window, 30, 30, existing, "")
	if len(slots) != 24 {
		t.Fatalf("expected 24 candidates 08:00..19:30, got %d", len(slots))
	}
	if slots[0].Time != "08:00" || slots[len(slots)-1].Time != "19:30" {
		t.Fatalf("candidate range = %s..%s, want 08:00..19:30", slots[0].Time, slots[len(slots)-1].Time)
	}

	byTime := map[string]bool{}
	for _, s := range slots {
		if _, dup := byTime[s.Time]; dup {
			t.Fatalf("duplicate candidate %s", s.Time)
		}
		byTime[s.Time] = s.Available
	}

	// 09:30 ends exactly at 10:00: no overlap under the half-open rule.
	if !byTime["09:30"] {
		t.Fatalf("expected 09:30 to be available")
	}
	if byTime["10:00"] {
		t.Fatalf("expected 10:00 to be unavailable")
	}
	if !byTime["10:30"] {
		t.Fatalf("expected 10:30 to be available")
	}
}

func TestSlotsForDay_EmptyDayAllAvailable(t *testing.T) {
	window := Window{OpenMinute: 9 * 60, CloseMinute: 12 * 60}
	slots := SlotsForDay(window, 45, 15, nil, "")

	// Candidates 09:00..11:15 on the 15 min grid.
	if len(slots) != 10 {
		t.Fatalf("expected 10 candidates, got %d", len(slots))
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("expected %s to be available on an empty day", s.Time)
		}
	}
	if slots[len(slots)-1].Time != "11:15" {
		t.Fatalf("last candidate = %s, want 11:15 (ends 12:00)", slots[len(slots)-1].Time)
	}
}

func TestSlotsForDay_CancelledDoesNotBlock(t *testing.T) {
	window := Window{OpenMinute: 9 * 60, CloseMinute: 11 * 60}
	existing := []model.Appointment{
		appt("a1", day(2026, time.March, 9), 9*60, 60, model.StatusCancelled),
	}
	slots := SlotsForDay(window, 30, 30, existing, "")
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("cancelled booking blocked slot %s", s.Time)
		}
	}
}

func TestSlotsForDay_OverlappingExistingRows(t *testing.T) {
	// Anomalous data: two existing bookings overlap each other. Each is tested
	// independently; enumeration must not break.
	window := Window{OpenMinute: 9 * 60, CloseMinute: 12 * 60}
	existing := []model.Appointment{
		appt("a1", day(2026, time.March, 9), 600, 60, model.StatusConfirmed),
		appt("a2", day(2026, time.March, 9), 615, 60, model.StatusPending),
	}
	slots := SlotsForDay(window, 30, 30, existing, "")

	want := map[string]bool{
		"09:00": true, "09:30": true,
		"10:00": false, "10:30": false, "11:00": false,
		"11:30": true,
	}
	for _, s := range slots {
		if avail, ok := want[s.Time]; ok && s.Available != avail {
			t.Fatalf("slot %s available = %v, want %v", s.Time, s.Available, avail)
		}
	}
}

func TestSlotsForDay_StaffFilter(t *testing.T) {
	d := day(2026, time.March, 9)
	window := Window{OpenMinute: 9 * 60, CloseMinute: 11 * 60}

	other := appt("a1", d, 9*60, 60, model.StatusConfirmed)
	other.StaffID = "staff-b"
	unassigned := appt("a2", d, 10*60, 30, model.StatusConfirmed)
	existing := []model.Appointment{other, unassigned}

	slots := SlotsForDay(window, 30, 30, existing, "staff-a")
	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}

	// Another staff member's booking does not block staff-a's column.
	if !byTime["09:00"] || !byTime["09:30"] {
		t.Fatalf("expected staff-b's booking to be invisible to staff-a")
	}
	// A booking without a staff assignment blocks every column.
	if byTime["10:00"] {
		t.Fatalf("expected unassigned booking to block 10:00")
	}
}

func TestSlotsForDay_InvalidInputs(t *testing.T) {
	window := Window{OpenMinute: 9 * 60, CloseMinute: 17 * 60}
	if got := SlotsForDay(window, 0, 15, nil, ""); got != nil {
		t.Fatalf("expected nil for zero duration")
	}
	if got := SlotsForDay(window, 30, 0, nil, ""); got != nil {
		t.Fatalf("expected nil for zero step")
	}
	if got := SlotsForDay(Window{OpenMinute: 17 * 60, CloseMinute: 9 * 60}, 30, 15, nil, ""); got != nil {
		t.Fatalf("expected nil for inverted window")
	}
}
