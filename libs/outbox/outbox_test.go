package outbox

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	evt, err := NewEvent("appointment", "appt-1", "scheduling.appointment.booked.v1", map[string]string{
		"appointment_id": "appt-1",
		"clinic_id":      "clinic-1",
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if evt.AggregateType != "appointment" || evt.AggregateID != "appt-1" {
		t.Fatalf("unexpected aggregate: %+v", evt)
	}
	if evt.EventType != "scheduling.appointment.booked.v1" {
		t.Fatalf("unexpected event type %q", evt.EventType)
	}
	var body map[string]string
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if body["clinic_id"] != "clinic-1" {
		t.Fatalf("payload lost fields: %v", body)
	}
}

func TestMessageForCarriesEnvelope(t *testing.T) {
	rec := Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "appt-1",
		EventType:   "scheduling.appointment.rescheduled.v1",
		Payload:     []byte(`{"appointment_id":"appt-1"}`),
	}

	msg := messageFor(context.Background(), rec)

	if msg.Topic != rec.EventType {
		t.Fatalf("topic = %q, want event type %q", msg.Topic, rec.EventType)
	}
	if string(msg.Key) != rec.AggregateID {
		t.Fatalf("key = %q, want aggregate id %q", msg.Key, rec.AggregateID)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event_id"] != "evt-7" {
		t.Fatalf("event_id header = %q", headers["event_id"])
	}
	if headers["event_type"] != rec.EventType {
		t.Fatalf("event_type header = %q", headers["event_type"])
	}
}
