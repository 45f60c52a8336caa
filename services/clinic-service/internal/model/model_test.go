package model

import (
	"testing"
	"time"
)

func TestInvoiceTotal(t *testing.T) {
	inv := Invoice{Lines: []InvoiceLine{
		{Description: "Hydrafacial", Quantity: 1, UnitCents: 12500},
		{Description: "Serum", Quantity: 3, UnitCents: 1999},
	}}
	if got := inv.Total(); got != 12500+3*1999 {
		t.Fatalf("Total() = %d, want %d", got, 12500+3*1999)
	}
	if got := (Invoice{}).Total(); got != 0 {
		t.Fatalf("empty invoice Total() = %d, want 0", got)
	}
}

func TestLeadStatusValid(t *testing.T) {
	for _, s := range []LeadStatus{LeadNew, LeadContacted, LeadConverted, LeadLost} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []LeadStatus{"", "open", "NEW"} {
		if s.Valid() {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestDeclarationExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d := Declaration{ExpiresAt: now.Add(72 * time.Hour)}
	if d.Expired(now) {
		t.Fatal("declaration should not be expired before its deadline")
	}
	if d.Expired(d.ExpiresAt) {
		t.Fatal("declaration should not be expired exactly at its deadline")
	}
	if !d.Expired(d.ExpiresAt.Add(time.Second)) {
		t.Fatal("declaration should be expired after its deadline")
	}
}
