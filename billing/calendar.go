/*
calendar.go - Billing calendar evaluation

PURPOSE:
  Pure functions answering "is month M a billing month for ruleset R" and
  "what label does period M get". Periodicity controls how often a ruleset
  actually emits drafts; in between, accrued value saves up.

PERIODICITIES:
  monthly:       bills every month, label "M/YY"
  quarterly:     bills on months 3, 6, 9, 12, label "QN YY"
  yearly:        bills on month 12, label "YYYY"
  custom_months: bills every N months (m % N == 0), label "MM-MM/YY"
  custom_days:   accepted in configuration but not resolvable at month
                 granularity; treated as always billable with monthly
                 labels. The configured day count is carried on the
                 ruleset and ignored here.

All functions are total over months 1-12; there are no failure modes.

SEE ALSO:
  - accumulate.go: Consumes IsBillingMonth while walking the month range
*/
package billing

import "fmt"

// =============================================================================
// PERIODICITY
// =============================================================================

type Periodicity string

const (
	PeriodicityMonthly      Periodicity = "monthly"
	PeriodicityQuarterly    Periodicity = "quarterly"
	PeriodicityYearly       Periodicity = "yearly"
	PeriodicityCustomMonths Periodicity = "custom_months"
	PeriodicityCustomDays   Periodicity = "custom_days"
)

// =============================================================================
// BILLING MONTH EVALUATION
// =============================================================================

// IsBillingMonth reports whether month (1-12) is a natural billing
// boundary for the ruleset.
func IsBillingMonth(month int, rs Ruleset) bool {
	switch rs.Periodicity {
	case PeriodicityQuarterly:
		return month%3 == 0
	case PeriodicityYearly:
		return month == 12
	case PeriodicityCustomMonths:
		n := rs.PeriodicityValue
		if n <= 0 {
			return true
		}
		return month%n == 0
	default:
		// monthly and custom_days bill every month
		return true
	}
}

// PeriodLabel formats the billed period for month (1-12) of year.
func PeriodLabel(year, month int, rs Ruleset) string {
	switch rs.Periodicity {
	case PeriodicityQuarterly:
		return fmt.Sprintf("Q%d %02d", (month+2)/3, year%100)
	case PeriodicityYearly:
		return fmt.Sprintf("%d", year)
	case PeriodicityCustomMonths:
		n := rs.PeriodicityValue
		if n <= 0 {
			n = 1
		}
		start := month - n + 1
		return fmt.Sprintf("%02d-%02d/%02d", start, month, year%100)
	default:
		return fmt.Sprintf("%d/%02d", month, year%100)
	}
}
