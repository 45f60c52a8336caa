package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

func seedAppt(date time.Time) model.Appointment {
	a := appt("seed", date, 10*60, 45, model.StatusConfirmed)
	a.PatientID = "p1"
	a.PatientName = "Dana Peretz"
	a.ServiceID = "svc1"
	a.ServiceName = "Laser session"
	a.Notes = "room 2"
	return a
}

func TestExpand_WeeklyCount(t *testing.T) {
	seed := seedAppt(day(2026, time.March, 2)) // a Monday
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceWeekly, Count: 5})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// Count includes the seed, so 4 generated occurrences.
	if len(out) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(out))
	}
	prev := seed.Date
	for i, occ := range out {
		if got := occ.Date.Sub(prev); got != 7*24*time.Hour {
			t.Fatalf("occurrence %d is %v after the previous, want 168h", i, got)
		}
		prev = occ.Date

		if occ.ID == "" || occ.ID == seed.ID {
			t.Fatalf("occurrence %d must get a fresh id", i)
		}
		if occ.ServiceID != seed.ServiceID || occ.DurationMins != seed.DurationMins ||
			occ.StartMinute != seed.StartMinute || occ.PatientID != seed.PatientID ||
			occ.Notes != seed.Notes {
			t.Fatalf("occurrence %d must inherit the seed's fields: %+v", i, occ)
		}
	}
}

func TestExpand_BiweeklyStep(t *testing.T) {
	seed := seedAppt(day(2026, time.March, 2))
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceBiweekly, Count: 3})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(out))
	}
	if !SameDay(out[0].Date, day(2026, time.March, 16)) || !SameDay(out[1].Date, day(2026, time.March, 30)) {
		t.Fatalf("biweekly dates = %s, %s", FormatDate(out[0].Date), FormatDate(out[1].Date))
	}
}

func TestExpand_MonthlyEndDate(t *testing.T) {
	seed := seedAppt(day(2026, time.January, 15))
	end := day(2026, time.April, 20)
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceMonthly, EndDate: end})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected Feb/Mar/Apr occurrences, got %d", len(out))
	}
	for _, occ := range out {
		if occ.Date.After(end) {
			t.Fatalf("occurrence %s past end date %s", FormatDate(occ.Date), FormatDate(end))
		}
	}
}

func TestExpand_MonthlyClampsShortMonths(t *testing.T) {
	seed := seedAppt(day(2026, time.January, 31))
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceMonthly, Count: 4})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []time.Time{
		day(2026, time.February, 28), // 2026 is not a leap year
		day(2026, time.March, 31),    // anchored to the seed's day-of-month
		day(2026, time.April, 30),
	}
	if len(out) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(out))
	}
	for i, w := range want {
		if !SameDay(out[i].Date, w) {
			t.Fatalf("occurrence %d = %s, want %s", i, FormatDate(out[i].Date), FormatDate(w))
		}
	}
}

func TestExpand_MonthlyLeapYear(t *testing.T) {
	seed := seedAppt(day(2028, time.January, 31))
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceMonthly, Count: 2})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 || !SameDay(out[0].Date, day(2028, time.February, 29)) {
		t.Fatalf("expected Feb 29 2028, got %+v", out)
	}
}

func TestExpand_NoneIsEmpty(t *testing.T) {
	out, err := Expand(seedAppt(day(2026, time.March, 2)), RecurrenceRule{Type: RecurrenceNone})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("type none must expand to nothing, got %d", len(out))
	}
}

func TestExpand_EndDateRunawayGuard(t *testing.T) {
	seed := seedAppt(day(2026, time.January, 5))
	out, err := Expand(seed, RecurrenceRule{Type: RecurrenceWeekly, EndDate: day(2036, time.January, 5)})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != MaxRecurrenceCount-1 {
		t.Fatalf("expected the cap to bound a far end date, got %d occurrences", len(out))
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	seedDate := day(2026, time.March, 2)
	cases := []struct {
		name string
		rule RecurrenceRule
		ok   bool
	}{
		{"weekly count", RecurrenceRule{Type: RecurrenceWeekly, Count: 4}, true},
		{"monthly end date", RecurrenceRule{Type: RecurrenceMonthly, EndDate: day(2026, time.June, 1)}, true},
		{"none", RecurrenceRule{Type: RecurrenceNone}, true},
		{"both bounds", RecurrenceRule{Type: RecurrenceWeekly, Count: 4, EndDate: day(2026, time.June, 1)}, false},
		{"no bound", RecurrenceRule{Type: RecurrenceWeekly}, false},
		{"count of one", RecurrenceRule{Type: RecurrenceWeekly, Count: 1}, false},
		{"negative count", RecurrenceRule{Type: RecurrenceWeekly, Count: -3}, false},
		{"count past cap", RecurrenceRule{Type: RecurrenceWeekly, Count: MaxRecurrenceCount + 1}, false},
		{"end before seed", RecurrenceRule{Type: RecurrenceWeekly, EndDate: day(2026, time.February, 1)}, false},
		{"unknown type", RecurrenceRule{Type: "quarterly", Count: 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate(seedDate)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected validation error")
				}
				if !errors.Is(err, ErrInvalidRecurrence) {
					t.Fatalf("error %v does not wrap ErrInvalidRecurrence", err)
				}
			}
		})
	}
}
