package events

// Topic names double as event types. One event per topic.
const (
	TopicSettingsUpdated      = "clinic.settings.updated.v1"
	TopicServiceUpdated       = "clinic.service.updated.v1"
	TopicStaffUpdated         = "clinic.staff.updated.v1"
	TopicDeclarationSubmitted = "clinic.declaration.submitted.v1"
	TopicLeadConverted        = "clinic.lead.converted.v1"
)

// SettingsUpdated mirrors the clinic configuration other services cache.
// Operating hours travel as "HH:MM" wall-clock strings.
type SettingsUpdated struct {
	ClinicID     string `json:"clinic_id"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	SlotStepMins int    `json:"slot_step_minutes"`
	Timezone     string `json:"timezone"`
}

type ServiceUpdated struct {
	ServiceID    string `json:"service_id"`
	ClinicID     string `json:"clinic_id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	Active       bool   `json:"active"`
}

type StaffUpdated struct {
	StaffID  string `json:"staff_id"`
	ClinicID string `json:"clinic_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

type DeclarationSubmitted struct {
	DeclarationID string `json:"declaration_id"`
	ClinicID      string `json:"clinic_id"`
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	SubmittedAt   string `json:"submitted_at"`
}

type LeadConverted struct {
	LeadID    string `json:"lead_id"`
	ClinicID  string `json:"clinic_id"`
	PatientID string `json:"patient_id"`
}
