package schedule

import "errors"

// Scheduling failures are local to a single attempt and never mutate state;
// callers translate them into user-facing messages.
var (
	ErrSlotConflict        = errors.New("slot conflicts with an existing appointment")
	ErrOutOfOperatingHours = errors.New("slot is outside clinic operating hours")
	ErrInvalidRecurrence   = errors.New("invalid recurrence rule")
)
