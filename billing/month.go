package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH KEY - "YYYY-MM" granularity month
// =============================================================================

// MonthKey identifies a calendar month. Salary rule intervals and the
// engine's month walk all operate at this granularity.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

func NewMonthKey(year, month int) MonthKey {
	return MonthKey{Year: year, Month: month}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthKey{Year: t.Year(), Month: int(t.Month())}, nil
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Comparison follows calendar order, equivalent to the lexicographic
// ordering of the "YYYY-MM" form.
func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m MonthKey) Equal(other MonthKey) bool { return m == other }
func (m MonthKey) After(other MonthKey) bool { return other.Before(m) }

func (m MonthKey) BeforeOrEqual(other MonthKey) bool { return !m.After(other) }
func (m MonthKey) AfterOrEqual(other MonthKey) bool  { return !m.Before(other) }

// Contains reports whether k falls inside [start, end] inclusive.
func Contains(start, end, k MonthKey) bool {
	return k.AfterOrEqual(start) && k.BeforeOrEqual(end)
}

// =============================================================================
// ELIGIBLE RANGE - Which months are due for invoicing "now"
// =============================================================================

// EligibleEndMonth computes the last month whose value is eligible for
// invoicing, given "today" and the ruleset's entitlement day.
//
// A past entitlement day yields a one-month lag (the previous month is
// already eligible); a future entitlement day pushes the end back an
// extra month. The result may be zero or negative early in the year,
// which callers treat as "nothing due yet".
func EligibleEndMonth(today time.Time, entitlementDay int) int {
	if today.Day() > entitlementDay {
		return int(today.Month()) - 1
	}
	return int(today.Month()) - 2
}
