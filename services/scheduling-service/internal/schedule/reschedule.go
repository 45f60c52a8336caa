package schedule

import (
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

// DropTarget is the calendar cell an appointment was dragged onto. The grid
// has hour precision; the minute offset within the hour is preserved from the
// appointment's current slot.
type DropTarget struct {
	Date time.Time
	Hour int
}

// Placement is the resolved destination of a successful drop. Persisting it
// is the caller's responsibility; duration, service and status are unchanged
// by a move.
type Placement struct {
	Date        time.Time
	StartMinute int
}

func (p Placement) Time() string {
	return FormatClock(p.StartMinute)
}

// ResolveDrop validates moving appt to the target cell. The moved appointment
// is excluded from its own conflict check, so dropping it back on its current
// slot always succeeds. On conflict or an out-of-window destination the
// appointment is left untouched and a typed error is returned.
func ResolveDrop(appt model.Appointment, target DropTarget, window Window, all []model.Appointment) (Placement, error) {
	if target.Hour < 0 || target.Hour > 23 {
		return Placement{}, ErrOutOfOperatingHours
	}

	startMinute := target.Hour*60 + appt.StartMinute%60
	iv := NewInterval(startMinute, appt.DurationMins)
	if !window.Contains(iv) {
		return Placement{}, ErrOutOfOperatingHours
	}

	if _, conflict := FindConflict(target.Date, iv, appt.StaffID, appt.ID, all); conflict {
		return Placement{}, ErrSlotConflict
	}

	return Placement{Date: target.Date, StartMinute: startMinute}, nil
}
