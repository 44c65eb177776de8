package recur

import "time"

// Bucket is the coarse scheduling column a task lands in, keyed by how
// far its due date sits from today. The string value is what gets
// persisted in the task's status field.
type Bucket string

const (
	BucketToday      Bucket = "today"
	BucketTomorrow   Bucket = "tomorrow"
	BucketThisWeek   Bucket = "this_week"
	BucketNextWeek   Bucket = "next_week"
	BucketBackburner Bucket = "backburner"
)

// Label returns the display form ("this week" instead of "this_week").
func (b Bucket) Label() string {
	switch b {
	case BucketThisWeek:
		return "this week"
	case BucketNextWeek:
		return "next week"
	default:
		return string(b)
	}
}

// BucketFor classifies a due date relative to today. Both inputs are
// normalized to midnight before the day diff is taken, so callers may
// pass full timestamps. Past dates classify as backburner.
func BucketFor(due, today time.Time) Bucket {
	switch d := DaysBetween(today, due); {
	case d == 0:
		return BucketToday
	case d == 1:
		return BucketTomorrow
	case d >= 2 && d <= 7:
		return BucketThisWeek
	case d >= 8 && d <= 14:
		return BucketNextWeek
	default:
		return BucketBackburner
	}
}

// DaysBetween returns the whole-calendar-day distance from a to b
// (negative when b precedes a). The dates are rebuilt in UTC so DST
// transitions cannot skew the division.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}
