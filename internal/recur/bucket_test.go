package recur

import (
	"testing"
	"time"
)

func TestBucketBoundaries(t *testing.T) {
	t.Parallel()
	today := date(2024, time.June, 10)
	tests := []struct {
		days int
		want Bucket
	}{
		{days: 0, want: BucketToday},
		{days: 1, want: BucketTomorrow},
		{days: 2, want: BucketThisWeek},
		{days: 7, want: BucketThisWeek},
		{days: 8, want: BucketNextWeek},
		{days: 14, want: BucketNextWeek},
		{days: 15, want: BucketBackburner},
		{days: -1, want: BucketBackburner},
		{days: -30, want: BucketBackburner},
	}

	for _, tt := range tests {
		due := today.AddDate(0, 0, tt.days)
		if got := BucketFor(due, today); got != tt.want {
			t.Fatalf("BucketFor(+%dd) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestBucketIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()
	today := time.Date(2024, time.June, 10, 23, 50, 0, 0, time.UTC)
	due := time.Date(2024, time.June, 11, 0, 5, 0, 0, time.UTC)
	if got := BucketFor(due, today); got != BucketTomorrow {
		t.Fatalf("BucketFor = %s, want %s", got, BucketTomorrow)
	}
}

func TestBucketLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		b    Bucket
		want string
	}{
		{BucketToday, "today"},
		{BucketTomorrow, "tomorrow"},
		{BucketThisWeek, "this week"},
		{BucketNextWeek, "next week"},
		{BucketBackburner, "backburner"},
	}
	for _, tt := range tests {
		if got := tt.b.Label(); got != tt.want {
			t.Fatalf("Label(%s) = %q, want %q", tt.b, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()
	a := date(2024, time.June, 10)
	if got := DaysBetween(a, a.AddDate(0, 0, 4)); got != 4 {
		t.Fatalf("DaysBetween = %d, want 4", got)
	}
	if got := DaysBetween(a, a.AddDate(0, 0, -3)); got != -3 {
		t.Fatalf("DaysBetween = %d, want -3", got)
	}
}
