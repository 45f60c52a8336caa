package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// OccupiesSlot reports whether an appointment in this status blocks its time
// slot. Cancelled rows are kept for audit but do not block bookings.
func (s Status) OccupiesSlot() bool {
	return s != StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked visit. Date carries the calendar day (clock zeroed);
// StartMinute is minutes from midnight. An appointment never spans midnight.
// Patient contact lives on the row so reminders can be rebuilt when the
// appointment moves.
type Appointment struct {
	ID                string
	ClinicID          string
	PatientID         string
	PatientName       string
	PatientEmail      string
	PatientPhone      string
	ServiceID         string
	ServiceName       string
	StaffID           string
	DurationMins      int
	Date              time.Time
	StartMinute       int
	Status            Status
	Notes             string
	DeclarationStatus string
	CancelReason      string
	CreatedAt         time.Time
}

func (a Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMins
}

// Reschedule is the typed update payload for moving an appointment.
type Reschedule struct {
	Date        time.Time
	StartMinute int
}
