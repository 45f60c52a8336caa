package jobs

import (
	"strings"
	"testing"
	"time"
)

func TestRenderReminder(t *testing.T) {
	startsAt := time.Date(2026, 4, 7, 14, 30, 0, 0, time.UTC)

	subject, body := renderReminder(Job{
		PatientName: "Eva Jansen",
		ServiceName: "Hydrafacial",
		StartsAt:    startsAt,
	})
	if subject != "Reminder: Hydrafacial" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(body, "Eva Jansen") || !strings.Contains(body, "Hydrafacial") {
		t.Fatalf("body missing patient or service: %q", body)
	}
	if !strings.Contains(body, "Tuesday, 7 April at 14:30") {
		t.Fatalf("body missing formatted start time: %q", body)
	}
}

func TestRenderReminderFallbacks(t *testing.T) {
	subject, body := renderReminder(Job{StartsAt: time.Date(2026, 4, 7, 9, 0, 0, 0, time.UTC)})
	if subject != "Appointment reminder" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.HasPrefix(body, "Hi there,") {
		t.Fatalf("body should greet a nameless patient generically: %q", body)
	}
}
