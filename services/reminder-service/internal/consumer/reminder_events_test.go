package consumer

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCancelAllPending(t *testing.T) {
	moved := time.Date(2026, 4, 9, 13, 15, 0, 0, time.UTC)
	cases := []struct {
		name string
		evt  appointmentChanged
		want bool
	}{
		{"cancelled drops everything", appointmentChanged{AppointmentID: "a", Status: "cancelled", StartsAt: moved}, true},
		{"reschedule keeps new slot", appointmentChanged{AppointmentID: "a", Status: "pending", StartsAt: moved}, false},
		{"missing starts_at falls back to full cancel", appointmentChanged{AppointmentID: "a", Status: "confirmed"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cancelAllPending(tc.evt); got != tc.want {
				t.Fatalf("cancelAllPending(%+v) = %v, want %v", tc.evt, got, tc.want)
			}
		})
	}
}

func TestAppointmentChangedDecodesStartInstant(t *testing.T) {
	payload := []byte(`{
		"appointment_id": "appt-1",
		"clinic_id": "clinic-1",
		"status": "pending",
		"date": "2026-04-09",
		"time": "13:15",
		"starts_at": "2026-04-09T11:15:00Z"
	}`)
	var evt appointmentChanged
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2026, 4, 9, 11, 15, 0, 0, time.UTC)
	if !evt.StartsAt.Equal(want) {
		t.Fatalf("starts_at = %v, want %v", evt.StartsAt, want)
	}
	if cancelAllPending(evt) {
		t.Fatal("a reschedule with starts_at must not cancel the new slot's jobs")
	}
}
