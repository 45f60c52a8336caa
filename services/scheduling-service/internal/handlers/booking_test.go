package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/events"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

func decodeRequests(t *testing.T, evts []outbox.Event) []events.ReminderRequest {
	t.Helper()
	out := make([]events.ReminderRequest, 0, len(evts))
	for _, evt := range evts {
		if evt.EventType != events.TopicReminderRequested {
			t.Fatalf("event type = %q, want %q", evt.EventType, events.TopicReminderRequested)
		}
		var req events.ReminderRequest
		if err := json.Unmarshal(evt.Payload, &req); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		out = append(out, req)
	}
	return out
}

func TestReminderRequestsFollowReschedule(t *testing.T) {
	appt := &model.Appointment{
		ID:           "appt-1",
		ClinicID:     "clinic-1",
		PatientID:    "pat-1",
		PatientName:  "Eva de Vries",
		PatientEmail: "eva@example.com",
		PatientPhone: "+31612345678",
		ServiceName:  "Hydrafacial",
		DurationMins: 45,
		Date:         time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC),
		StartMinute:  10*60 + 15,
	}
	offsets := []time.Duration{24 * time.Hour, 2 * time.Hour}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	startsAt := time.Date(2026, 4, 7, 10, 15, 0, 0, time.UTC)
	evts, err := reminderRequests(appt, offsets, startsAt, now)
	if err != nil {
		t.Fatalf("reminderRequests: %v", err)
	}
	if len(evts) != 4 {
		t.Fatalf("got %d events, want 4 (2 offsets x 2 channels)", len(evts))
	}

	// Drag the appointment two days out to the 13:00 cell.
	appt.Date = time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	appt.StartMinute = 13*60 + 15
	movedStart := time.Date(2026, 4, 9, 13, 15, 0, 0, time.UTC)

	evts, err = reminderRequests(appt, offsets, movedStart, now)
	if err != nil {
		t.Fatalf("reminderRequests after move: %v", err)
	}
	if len(evts) != 4 {
		t.Fatalf("after move got %d events, want 4", len(evts))
	}

	seen := map[string]bool{}
	for _, req := range decodeRequests(t, evts) {
		if !req.StartsAt.Equal(movedStart) {
			t.Fatalf("starts_at = %v, want new slot %v", req.StartsAt, movedStart)
		}
		gap := req.StartsAt.Sub(req.RemindAt)
		if gap != 24*time.Hour && gap != 2*time.Hour {
			t.Fatalf("remind_at %v is not a configured offset before %v", req.RemindAt, req.StartsAt)
		}
		seen[req.Channel+"/"+req.Recipient] = true
	}
	if !seen["email/eva@example.com"] || !seen["sms/+31612345678"] {
		t.Fatalf("recipients lost across the move: %v", seen)
	}
	for _, evt := range evts {
		if evt.AggregateID != "appt-1" {
			t.Fatalf("aggregate id = %q, want appt-1", evt.AggregateID)
		}
	}
}

func TestReminderRequestsSkipPastOffsetsAndEmptyChannels(t *testing.T) {
	appt := &model.Appointment{
		ID:           "appt-2",
		ClinicID:     "clinic-1",
		PatientName:  "Noor",
		PatientEmail: "noor@example.com",
		Date:         time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC),
		StartMinute:  9 * 60,
	}
	startsAt := time.Date(2026, 4, 7, 9, 0, 0, 0, time.UTC)
	offsets := []time.Duration{24 * time.Hour, 2 * time.Hour}

	// The day-before slot has passed; only the 2h reminder remains, and
	// without a phone number there is no sms event.
	now := startsAt.Add(-3 * time.Hour)
	evts, err := reminderRequests(appt, offsets, startsAt, now)
	if err != nil {
		t.Fatalf("reminderRequests: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("got %d events, want 1", len(evts))
	}
	req := decodeRequests(t, evts)[0]
	if req.Channel != "email" || req.Recipient != "noor@example.com" {
		t.Fatalf("unexpected request %+v", req)
	}

	// Inside the last offset nothing is due anymore.
	evts, err = reminderRequests(appt, offsets, startsAt, startsAt.Add(-time.Minute))
	if err != nil {
		t.Fatalf("reminderRequests: %v", err)
	}
	if len(evts) != 0 {
		t.Fatalf("got %d events, want none", len(evts))
	}
}
