package handlers

import (
	"testing"

	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
)

func TestStatusTransitionAllowed(t *testing.T) {
	cases := []struct {
		from model.InvoiceStatus
		to   model.InvoiceStatus
		want bool
	}{
		{model.InvoiceDraft, model.InvoiceIssued, true},
		{model.InvoiceIssued, model.InvoicePaid, true},
		{model.InvoiceDraft, model.InvoiceVoid, true},
		{model.InvoiceIssued, model.InvoiceVoid, true},
		{model.InvoiceDraft, model.InvoicePaid, false},
		{model.InvoicePaid, model.InvoiceVoid, false},
		{model.InvoicePaid, model.InvoiceIssued, false},
		{model.InvoiceVoid, model.InvoiceIssued, false},
		{model.InvoiceIssued, model.InvoiceDraft, false},
	}
	for _, tc := range cases {
		if got := statusTransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("statusTransitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"09:00", 540, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{" 13:30 ", 810, true},
		{"9:00", 540, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseClock(tc.raw)
		if ok != tc.ok {
			t.Fatalf("parseClock(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("parseClock(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, minute := range []int{0, 540, 810, 1439} {
		got, ok := parseClock(formatClock(minute))
		if !ok || got != minute {
			t.Fatalf("round trip of minute %d gave (%d, %v)", minute, got, ok)
		}
	}
}
