package billing

// =============================================================================
// SALARY ACCRUAL RESOLVER - Dated value intervals
// =============================================================================

// SalaryValue is the resolved value/deduction pair for one month.
type SalaryValue struct {
	Value     Amount
	Deduction Amount
}

// Net returns value minus deduction, the amount accrued for the month.
func (s SalaryValue) Net() Amount { return s.Value.Sub(s.Deduction) }

// ResolveSalary scans the ruleset's salary rules in order and returns the
// first whose [Start, End] interval contains year/month. A ruleset with no
// matching rule contributes nothing for that month; this is a silent
// default, not an error.
func ResolveSalary(rs Ruleset, year, month int) SalaryValue {
	target := NewMonthKey(year, month)
	for _, rule := range rs.SalaryRules {
		if Contains(rule.Start, rule.End, target) {
			return SalaryValue{Value: rule.Value, Deduction: rule.Deduction}
		}
	}
	return SalaryValue{Value: ZeroAmount(), Deduction: ZeroAmount()}
}
