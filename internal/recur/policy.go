package recur

import "time"

// HorizonDays is the forward limit beyond which no instance is
// materialized on the current run. Far-future occurrences are picked up
// by a later run once they fall inside the horizon.
const HorizonDays = 14

// ShouldCreate decides whether a new instance is warranted now.
//
// lastDue is the due date of the template's most recently materialized
// instance, or nil when none exists. Rules, in order:
//
//  1. Refuse anything beyond the horizon.
//  2. With no prior instance, allow.
//  3. Otherwise allow only a due date strictly later than the last
//     instance's. This is the idempotency guard that keeps one calendar
//     occurrence from being regenerated.
func ShouldCreate(lastDue *time.Time, nextDue, today time.Time) bool {
	if DaysBetween(today, nextDue) > HorizonDays {
		return false
	}
	if lastDue == nil {
		return true
	}
	return DaysBetween(*lastDue, nextDue) > 0
}
