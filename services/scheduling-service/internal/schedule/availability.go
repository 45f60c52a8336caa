package schedule

import "github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"

// TimeSlot is one bookable candidate in a day. Unavailable candidates are
// returned too, so a booking UI can render them disabled.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// SlotsForDay enumerates candidate start times on the clinic's step grid and
// marks each one available or not for a booking of durationMins.
//
// Candidates run from window open while the booking still ends by close, so
// the result covers [open, close-duration] with no gaps and no duplicates.
// The step is the clinic's fixed slot granularity; the service duration only
// sets the length of the occupied interval. A candidate is unavailable when
// its half-open interval overlaps any existing appointment that occupies a
// slot (each existing row is tested independently, so anomalous overlapping
// data cannot break enumeration). When staffID is set, only that staff
// member's column is consulted; appointments without a staff assignment block
// every column.
func SlotsForDay(window Window, durationMins, stepMins int, existing []model.Appointment, staffID string) []TimeSlot {
	if durationMins <= 0 || stepMins <= 0 {
		return nil
	}
	if window.OpenMinute < 0 || window.CloseMinute > MinutesPerDay || window.OpenMinute >= window.CloseMinute {
		return nil
	}

	var slots []TimeSlot
	for s := window.OpenMinute; s+durationMins <= window.CloseMinute; s += stepMins {
		iv := NewInterval(s, durationMins)
		available := true
		for _, e := range existing {
			if !e.Status.OccupiesSlot() {
				continue
			}
			if staffID != "" && e.StaffID != "" && e.StaffID != staffID {
				continue
			}
			if iv.Overlaps(intervalOf(e)) {
				available = false
				break
			}
		}
		slots = append(slots, TimeSlot{Time: FormatClock(s), Available: available})
	}
	return slots
}
