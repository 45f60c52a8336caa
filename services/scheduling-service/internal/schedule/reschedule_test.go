package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

var clinicWindow = Window{OpenMinute: 8 * 60, CloseMinute: 20 * 60}

func TestResolveDrop_MoveToFreeCell(t *testing.T) {
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60, 30, model.StatusConfirmed)
	all := []model.Appointment{
		moved,
		appt("other", monday, 15*60, 30, model.StatusConfirmed),
	}

	placement, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 12}, clinicWindow, all)
	if err != nil {
		t.Fatalf("ResolveDrop: %v", err)
	}
	if !SameDay(placement.Date, monday) || placement.Time() != "12:00" {
		t.Fatalf("placement = %s %s, want same day 12:00", FormatDate(placement.Date), placement.Time())
	}
}

func TestResolveDrop_PreservesMinuteOffset(t *testing.T) {
	monday := day(2026, time.March, 9)
	tuesday := day(2026, time.March, 10)
	moved := appt("m1", monday, 10*60+15, 45, model.StatusConfirmed)

	placement, err := ResolveDrop(moved, DropTarget{Date: tuesday, Hour: 13}, clinicWindow, []model.Appointment{moved})
	if err != nil {
		t.Fatalf("ResolveDrop: %v", err)
	}
	if placement.Time() != "13:15" {
		t.Fatalf("placement time = %s, want 13:15 (minute offset preserved)", placement.Time())
	}
	if !SameDay(placement.Date, tuesday) {
		t.Fatalf("placement date = %s, want %s", FormatDate(placement.Date), FormatDate(tuesday))
	}
}

func TestResolveDrop_ConflictAtDestination(t *testing.T) {
	// Dragging a 45 min appointment from 10:00 to 11:00 while 11:00-11:30 is
	// taken must be rejected.
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60, 45, model.StatusConfirmed)
	all := []model.Appointment{
		moved,
		appt("blocker", monday, 11*60, 30, model.StatusConfirmed),
	}

	_, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 11}, clinicWindow, all)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestResolveDrop_NoSelfConflict(t *testing.T) {
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60, 30, model.StatusConfirmed)

	placement, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 10}, clinicWindow, []model.Appointment{moved})
	if err != nil {
		t.Fatalf("moving an appointment onto its current slot must succeed: %v", err)
	}
	if placement.Time() != "10:00" {
		t.Fatalf("placement time = %s, want 10:00", placement.Time())
	}
}

func TestResolveDrop_CancelledAtDestinationDoesNotBlock(t *testing.T) {
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60, 30, model.StatusConfirmed)
	all := []model.Appointment{
		moved,
		appt("cancelled", monday, 12*60, 60, model.StatusCancelled),
	}

	if _, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 12}, clinicWindow, all); err != nil {
		t.Fatalf("cancelled booking must not block the destination: %v", err)
	}
}

func TestResolveDrop_OutOfOperatingHours(t *testing.T) {
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60+30, 45, model.StatusConfirmed)

	cases := []struct {
		name string
		hour int
	}{
		{"before open", 7},
		{"runs past close", 19}, // 19:30 + 45 min ends 20:15
		{"invalid hour", 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: tc.hour}, clinicWindow, []model.Appointment{moved})
			if !errors.Is(err, ErrOutOfOperatingHours) {
				t.Fatalf("expected ErrOutOfOperatingHours, got %v", err)
			}
		})
	}
}

func TestResolveDrop_StaffPartitioning(t *testing.T) {
	monday := day(2026, time.March, 9)
	moved := appt("m1", monday, 10*60, 30, model.StatusConfirmed)
	moved.StaffID = "staff-a"

	otherColumn := appt("b1", monday, 14*60, 30, model.StatusConfirmed)
	otherColumn.StaffID = "staff-b"
	sameColumn := appt("b2", monday, 16*60, 30, model.StatusConfirmed)
	sameColumn.StaffID = "staff-a"
	all := []model.Appointment{moved, otherColumn, sameColumn}

	// A different staff member's booking does not block the move.
	if _, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 14}, clinicWindow, all); err != nil {
		t.Fatalf("staff-b's booking must not block staff-a: %v", err)
	}
	// The same column still conflicts.
	if _, err := ResolveDrop(moved, DropTarget{Date: monday, Hour: 16}, clinicWindow, all); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict in the same staff column, got %v", err)
	}
}
