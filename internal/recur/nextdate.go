package recur

import "time"

// Midnight truncates t to the start of its calendar day, keeping the
// location. All date math in this package works on midnight-normalized
// values.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextDue computes the next calendar date on or after ref that matches
// the rule. ref is normalized to midnight first, so passing a timestamp
// with a time-of-day component is fine.
func NextDue(r Rule, ref time.Time) time.Time {
	ref = Midnight(ref)

	switch r.Kind {
	case KindDaily:
		return ref

	case KindWeekly:
		// A same-day match returns ref itself, not next week.
		delta := (int(r.Weekday) - int(ref.Weekday()) + 7) % 7
		return ref.AddDate(0, 0, delta)

	case KindMonthly:
		if r.LastOfMonth {
			return nextMonthLast(ref)
		}
		return nextMonthlyDay(ref, r.DayOfMonth)

	default:
		return ref
	}
}

func nextMonthLast(ref time.Time) time.Time {
	last := daysIn(ref.Year(), ref.Month())
	if ref.Day() <= last {
		return time.Date(ref.Year(), ref.Month(), last, 0, 0, 0, 0, ref.Location())
	}
	// Start of next month, then its final day.
	next := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
	return time.Date(next.Year(), next.Month(), daysIn(next.Year(), next.Month()), 0, 0, 0, 0, ref.Location())
}

func nextMonthlyDay(ref time.Time, day int) time.Time {
	// Months shorter than the selector never receive an instance; the
	// occurrence defers to the first month that actually has that day.
	// No clamping to day 30/28.
	if ref.Day() <= day && daysIn(ref.Year(), ref.Month()) >= day {
		return time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, ref.Location())
	}

	// Roll to day n of the first later month that has one. Skips months
	// outright: selector 30 evaluated on Jan 31 lands on Mar 30, not on
	// a clamped Feb 28. At most two steps for any selector <= 31.
	next := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
	for daysIn(next.Year(), next.Month()) < day {
		next = next.AddDate(0, 1, 0)
	}
	return time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, ref.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
