package recur

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the rule family: how often a template repeats.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

// lastSelector is the monthly selector meaning "final day of the month".
const lastSelector = "last"

// Rule is a decoded recurrence token.
//
// Exactly one of the selector fields is meaningful depending on Kind:
// Weekday for weekly rules, DayOfMonth/LastOfMonth for monthly ones.
type Rule struct {
	Kind        Kind
	Weekday     time.Weekday
	DayOfMonth  int
	LastOfMonth bool
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse decodes a rule token ("daily", "weekly-friday", "monthly-15",
// "monthly-last"). Decode fails softly: ok=false means "no recurrence",
// never an error. Callers skip such templates until the token is fixed.
func Parse(token string) (Rule, bool) {
	kind, sel, _ := strings.Cut(strings.TrimSpace(token), "-")
	switch Kind(kind) {
	case KindDaily:
		if sel != "" {
			return Rule{}, false
		}
		return Rule{Kind: KindDaily}, true
	case KindWeekly:
		wd, ok := weekdayNames[strings.ToLower(sel)]
		if !ok {
			return Rule{}, false
		}
		return Rule{Kind: KindWeekly, Weekday: wd}, true
	case KindMonthly:
		if strings.EqualFold(sel, lastSelector) {
			return Rule{Kind: KindMonthly, LastOfMonth: true}, true
		}
		n, err := strconv.Atoi(sel)
		if err != nil || n < 1 || n > 31 {
			return Rule{}, false
		}
		return Rule{Kind: KindMonthly, DayOfMonth: n}, true
	default:
		return Rule{}, false
	}
}

// Token re-encodes the rule as its compact string form.
func (r Rule) Token() string {
	switch r.Kind {
	case KindDaily:
		return string(KindDaily)
	case KindWeekly:
		return string(KindWeekly) + "-" + strings.ToLower(r.Weekday.String())
	case KindMonthly:
		if r.LastOfMonth {
			return string(KindMonthly) + "-" + lastSelector
		}
		return string(KindMonthly) + "-" + strconv.Itoa(r.DayOfMonth)
	default:
		return ""
	}
}

// Format renders a rule token for display ("Every day", "Every friday",
// "15th of each month", "Last day of each month"). Unrecognized tokens
// are echoed unchanged so the UI never shows an empty label.
func Format(token string) string {
	r, ok := Parse(token)
	if !ok {
		return token
	}
	switch r.Kind {
	case KindDaily:
		return "Every day"
	case KindWeekly:
		return "Every " + strings.ToLower(r.Weekday.String())
	case KindMonthly:
		if r.LastOfMonth {
			return "Last day of each month"
		}
		return fmt.Sprintf("%d%s of each month", r.DayOfMonth, ordinalSuffix(r.DayOfMonth))
	default:
		return token
	}
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
