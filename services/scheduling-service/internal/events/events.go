package events

import "time"

// Topic names double as event types. One event per topic.
const (
	TopicAppointmentBooked      = "scheduling.appointment.booked.v1"
	TopicAppointmentRescheduled = "scheduling.appointment.rescheduled.v1"
	TopicAppointmentCancelled   = "scheduling.appointment.cancelled.v1"
	TopicSeriesCreated          = "scheduling.series.created.v1"
	TopicReminderRequested      = "scheduling.reminder.requested.v1"
)

// AppointmentEvent is the payload for booked, rescheduled and cancelled
// events. Date and Time are the clinic-local wall clock the calendar shows;
// StartsAt is the same instant in UTC, so consumers can compare slots without
// knowing the clinic's timezone.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	ClinicID      string    `json:"clinic_id"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	ServiceID     string    `json:"service_id"`
	ServiceName   string    `json:"service_name"`
	StaffID       string    `json:"staff_id,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	StartsAt      time.Time `json:"starts_at"`
	DurationMins  int       `json:"duration_minutes"`
	Status        string    `json:"status"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
}

// SeriesCreatedEvent announces a recurrence expansion. Skipped lists the
// occurrence dates that could not be placed.
type SeriesCreatedEvent struct {
	SeedAppointmentID string   `json:"seed_appointment_id"`
	ClinicID          string   `json:"clinic_id"`
	Recurrence        string   `json:"recurrence"`
	CreatedIDs        []string `json:"created_ids"`
	Skipped           []string `json:"skipped,omitempty"`
}

// ReminderRequest asks the reminder service to deliver a notification at
// RemindAt. Channel is "email" or "sms".
type ReminderRequest struct {
	AppointmentID string    `json:"appointment_id"`
	ClinicID      string    `json:"clinic_id"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	ServiceName   string    `json:"service_name"`
	Channel       string    `json:"channel"`
	Recipient     string    `json:"recipient"`
	RemindAt      time.Time `json:"remind_at"`
	StartsAt      time.Time `json:"starts_at"`
}
