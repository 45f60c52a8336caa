package storage

import (
	"testing"
	"time"
)

func TestDayLockKey(t *testing.T) {
	day := time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC)

	got := dayLockKey("clinic-1", day)
	if got != "clinic-1:2026-04-07" {
		t.Fatalf("dayLockKey = %q", got)
	}
	if dayLockKey("clinic-1", day) != got {
		t.Fatal("key must be stable for the same clinic day")
	}
	if dayLockKey("clinic-2", day) == got {
		t.Fatal("different clinics must not share a lock key")
	}
	if dayLockKey("clinic-1", day.AddDate(0, 0, 1)) == got {
		t.Fatal("different days must not share a lock key")
	}
	// The time of day never leaks into the key; bookings lock per calendar day.
	if dayLockKey("clinic-1", day.Add(9*time.Hour+30*time.Minute)) != got {
		t.Fatal("clock component must not change the key")
	}
}
