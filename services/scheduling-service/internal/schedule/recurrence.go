package schedule

import (
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = "none"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// MaxRecurrenceCount caps a series (seed included) so malformed input cannot
// generate an unbounded run of appointments.
const MaxRecurrenceCount = 52

// RecurrenceRule bounds a repeated series by exactly one of Count (total
// occurrences, seed included) or EndDate (inclusive). Setting one clears the
// other; supplying both is rejected.
type RecurrenceRule struct {
	Type    RecurrenceType
	Count   int
	EndDate time.Time
}

func (r RecurrenceRule) Validate(seedDate time.Time) error {
	switch r.Type {
	case RecurrenceNone:
		return nil
	case RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecurrence, r.Type)
	}

	hasCount := r.Count != 0
	hasEnd := !r.EndDate.IsZero()
	if hasCount && hasEnd {
		return fmt.Errorf("%w: count and end date are mutually exclusive", ErrInvalidRecurrence)
	}
	if !hasCount && !hasEnd {
		return fmt.Errorf("%w: a count or an end date is required", ErrInvalidRecurrence)
	}
	if hasCount {
		if r.Count < 2 {
			return fmt.Errorf("%w: count must be at least 2", ErrInvalidRecurrence)
		}
		if r.Count > MaxRecurrenceCount {
			return fmt.Errorf("%w: count exceeds the cap of %d", ErrInvalidRecurrence, MaxRecurrenceCount)
		}
	}
	if hasEnd && r.EndDate.Before(seedDate) {
		return fmt.Errorf("%w: end date precedes the first occurrence", ErrInvalidRecurrence)
	}
	return nil
}

// Expand generates the future occurrences of a recurring series. The seed
// itself is not part of the output; the caller creates it separately. Each
// occurrence copies the seed (service, duration, time of day, patient, notes)
// with a fresh id and a shifted date. Expansion performs no conflict checks;
// callers test each generated date against existing bookings.
//
// Monthly steps are anchored to the seed's day-of-month: a Jan 31 seed yields
// Feb 28 (29 in leap years) and then Mar 31, never Mar 3.
func Expand(seed model.Appointment, rule RecurrenceRule) ([]model.Appointment, error) {
	if err := rule.Validate(seed.Date); err != nil {
		return nil, err
	}
	if rule.Type == RecurrenceNone {
		return nil, nil
	}

	maxOccurrences := MaxRecurrenceCount - 1
	if rule.Count > 0 {
		maxOccurrences = rule.Count - 1
	}

	var out []model.Appointment
	for i := 1; i <= maxOccurrences; i++ {
		var date time.Time
		switch rule.Type {
		case RecurrenceWeekly:
			date = seed.Date.AddDate(0, 0, 7*i)
		case RecurrenceBiweekly:
			date = seed.Date.AddDate(0, 0, 14*i)
		case RecurrenceMonthly:
			date = addMonthsClamped(seed.Date, i)
		}
		if !rule.EndDate.IsZero() && date.After(rule.EndDate) {
			break
		}
		occ := seed
		occ.ID = uuid.NewString()
		occ.Date = date
		occ.CreatedAt = time.Time{}
		out = append(out, occ)
	}
	return out, nil
}

// addMonthsClamped adds months keeping the day-of-month, clamping to the last
// day of a shorter target month. time.AddDate would normalize Jan 31 + 1
// month into Mar 2/3, which is the wrong answer for a clinic calendar.
func addMonthsClamped(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}
