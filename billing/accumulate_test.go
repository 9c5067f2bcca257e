package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturak/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amount(v float64) billing.Amount { return billing.NewAmount(v) }

// flatRuleset builds a monthly ruleset with a single salary interval
// spanning the whole of 2026.
func flatRuleset(id string, value, max float64) billing.Ruleset {
	return billing.Ruleset{
		ID:              billing.RulesetID(id),
		Name:            id,
		Periodicity:     billing.PeriodicityMonthly,
		EntitlementDay:  5,
		MaxInvoiceValue: amount(max),
		SalaryRules: []billing.SalaryRule{
			{
				Start: billing.NewMonthKey(2026, 1),
				End:   billing.NewMonthKey(2026, 12),
				Value: amount(value),
			},
		},
	}
}

func onDate(month time.Month, day int) time.Time {
	return time.Date(2026, month, day, 12, 0, 0, 0, time.UTC)
}

func totalAmount(drafts []billing.Draft) billing.Amount {
	sum := billing.ZeroAmount()
	for _, d := range drafts {
		sum = sum.Add(d.Amount)
	}
	return sum
}

// =============================================================================
// ELIGIBLE RANGE
// =============================================================================

func TestEligibleEndMonth(t *testing.T) {
	// GIVEN an entitlement day of 5
	// WHEN today is past the cutoff, the previous month is eligible;
	// WHEN today is on or before it, eligibility lags one month further.
	assert.Equal(t, 2, billing.EligibleEndMonth(onDate(time.March, 10), 5))
	assert.Equal(t, 1, billing.EligibleEndMonth(onDate(time.March, 5), 5))
	assert.Equal(t, 1, billing.EligibleEndMonth(onDate(time.March, 3), 5))
	assert.Equal(t, 2, billing.EligibleEndMonth(onDate(time.March, 3), 2))
}

func TestComputeDraftsNothingDue(t *testing.T) {
	// GIVEN the watermark already covers every eligible month
	rs := flatRuleset("main", 50000, 90000)

	// WHEN computing on March 10 with months 1-2 already invoiced
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets:          []billing.Ruleset{rs},
		Today:             onDate(time.March, 10),
		LastInvoicedMonth: 2,
	})

	// THEN no drafts are produced
	assert.Empty(t, drafts)
}

// =============================================================================
// MONTHLY ACCUMULATION
// =============================================================================

func TestMonthlyFlatUnderCeiling(t *testing.T) {
	// GIVEN a monthly ruleset at 50000/month with a 90000 ceiling
	rs := flatRuleset("main", 50000, 90000)

	// WHEN computing on March 10 with nothing invoiced yet
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN January and February each produce a single full-value draft
	require.Len(t, drafts, 2)

	assert.Equal(t, billing.DraftID{RulesetID: "main", Year: 2026, Month: 1, Split: 0}, drafts[0].ID)
	assert.True(t, drafts[0].Amount.Equal(amount(50000)))
	assert.Equal(t, "1/26 (main)", drafts[0].DisplayLabel)

	assert.Equal(t, billing.DraftID{RulesetID: "main", Year: 2026, Month: 2, Split: 0}, drafts[1].ID)
	assert.True(t, drafts[1].Amount.Equal(amount(50000)))
	assert.Equal(t, "2/26 (main)", drafts[1].DisplayLabel)
}

func TestMonthlySplitOverCeiling(t *testing.T) {
	// GIVEN a monthly ruleset at 100000/month with a 90000 ceiling
	rs := flatRuleset("main", 100000, 90000)

	// WHEN computing on March 10 with nothing invoiced yet
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN each month splits into a full part and a remainder,
	// with the split suffix depending on position in the eligible range
	require.Len(t, drafts, 4)

	assert.True(t, drafts[0].Amount.Equal(amount(90000)))
	assert.Equal(t, "1/26 (main)", drafts[0].DisplayLabel)
	assert.True(t, drafts[1].Amount.Equal(amount(10000)))
	assert.Equal(t, "1/26 (main) Remainder", drafts[1].DisplayLabel)

	assert.True(t, drafts[2].Amount.Equal(amount(90000)))
	assert.Equal(t, "2/26 (main)", drafts[2].DisplayLabel)
	assert.True(t, drafts[3].Amount.Equal(amount(10000)))
	assert.Equal(t, "2/26 (main) Part 2", drafts[3].DisplayLabel)

	// AND the split indices are stable identities
	assert.Equal(t, 0, drafts[0].ID.Split)
	assert.Equal(t, 1, drafts[1].ID.Split)
	assert.Equal(t, 1, drafts[3].ID.Split)

	// AND value is conserved
	assert.True(t, totalAmount(drafts).Equal(amount(200000)))
}

func TestMonthlyMinimizeCarriesRemainder(t *testing.T) {
	// GIVEN a minimize-invoices monthly ruleset at 50000/month, ceiling 90000
	rs := flatRuleset("main", 50000, 90000)
	rs.MinimizeInvoices = true

	// WHEN computing on March 10 (months 1-2 eligible)
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN January emits nothing (its value rides along) and February
	// flushes the accumulated 100000 as a full part plus a remainder
	require.Len(t, drafts, 2)

	assert.Equal(t, 2, drafts[0].ID.Month)
	assert.True(t, drafts[0].Amount.Equal(amount(90000)))
	assert.Equal(t, "2/26 (main)", drafts[0].DisplayLabel)

	assert.Equal(t, 2, drafts[1].ID.Month)
	assert.True(t, drafts[1].Amount.Equal(amount(10000)))
	assert.Equal(t, "2/26 (main) Remainder", drafts[1].DisplayLabel)

	assert.True(t, totalAmount(drafts).Equal(amount(100000)))
}

// =============================================================================
// QUARTERLY ACCUMULATION
// =============================================================================

func TestQuarterlySavesUpSilently(t *testing.T) {
	// GIVEN a quarterly ruleset without minimize-invoices
	rs := flatRuleset("q", 40000, 90000)
	rs.Periodicity = billing.PeriodicityQuarterly

	// WHEN the eligible range ends before the quarter boundary
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10), // months 1-2 eligible, Q1 closes at 3
	})

	// THEN nothing is emitted; the value waits for the boundary
	assert.Empty(t, drafts)
}

func TestQuarterlyMinimizeFlush(t *testing.T) {
	// GIVEN a quarterly minimize-invoices ruleset at 40000/month, ceiling 90000
	rs := flatRuleset("q", 40000, 90000)
	rs.Periodicity = billing.PeriodicityQuarterly
	rs.MinimizeInvoices = true

	// WHEN computing on April 10 (months 1-3 eligible, quarter closes at 3)
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.April, 10),
	})

	// THEN the quarter flushes 120000 as 90000 + 30000 on month 3
	require.Len(t, drafts, 2)

	assert.Equal(t, 3, drafts[0].ID.Month)
	assert.True(t, drafts[0].Amount.Equal(amount(90000)))
	assert.Equal(t, "Q1 26 (q)", drafts[0].DisplayLabel)

	assert.True(t, drafts[1].Amount.Equal(amount(30000)))
	assert.Equal(t, "Q1 26 (q) Remainder", drafts[1].DisplayLabel)
}

func TestMinimizeFlushOnNonBillingMonth(t *testing.T) {
	// GIVEN a quarterly minimize-invoices ruleset
	rs := flatRuleset("q", 40000, 200000)
	rs.Periodicity = billing.PeriodicityQuarterly
	rs.MinimizeInvoices = true

	// WHEN the eligible range ends mid-quarter (months 1-2)
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN the final eligible month flushes anyway
	require.Len(t, drafts, 1)
	assert.Equal(t, 2, drafts[0].ID.Month)
	assert.True(t, drafts[0].Amount.Equal(amount(80000)))
}

func TestFlushMultipleRemainders(t *testing.T) {
	// GIVEN a large flush spanning several full parts
	rs := flatRuleset("q", 100000, 90000)
	rs.Periodicity = billing.PeriodicityQuarterly
	rs.MinimizeInvoices = true

	// WHEN the flush holds 300000 against a 90000 ceiling
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.April, 10),
	})

	// THEN parts after the first are numbered remainders
	require.Len(t, drafts, 4)
	assert.Equal(t, "Q1 26 (q)", drafts[0].DisplayLabel)
	assert.Equal(t, "Q1 26 (q) Remainder 1/3", drafts[1].DisplayLabel)
	assert.Equal(t, "Q1 26 (q) Remainder 2/3", drafts[2].DisplayLabel)
	assert.Equal(t, "Q1 26 (q) Remainder 3/3", drafts[3].DisplayLabel)
	assert.True(t, totalAmount(drafts).Equal(amount(300000)))
}

// =============================================================================
// SALARY INTERVALS AND DEDUCTIONS
// =============================================================================

func TestDeductionReducesNetValue(t *testing.T) {
	// GIVEN a salary rule with a deduction
	rs := flatRuleset("main", 50000, 90000)
	rs.SalaryRules[0].Deduction = amount(5000)

	// WHEN computing two eligible months
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN each draft carries the net value
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].Amount.Equal(amount(45000)))
	assert.True(t, drafts[0].NetValue.Equal(amount(45000)))
}

func TestSalaryChangeMidRange(t *testing.T) {
	// GIVEN a raise taking effect in February
	rs := flatRuleset("main", 50000, 900000)
	rs.SalaryRules = []billing.SalaryRule{
		{Start: billing.NewMonthKey(2026, 2), End: billing.NewMonthKey(2026, 12), Value: amount(60000)},
		{Start: billing.NewMonthKey(2026, 1), End: billing.NewMonthKey(2026, 1), Value: amount(50000)},
	}

	// WHEN computing months 1-2
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN each month resolves its own interval
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].Amount.Equal(amount(50000)))
	assert.True(t, drafts[1].Amount.Equal(amount(60000)))
}

func TestUncoveredMonthAccruesZero(t *testing.T) {
	// GIVEN a salary rule covering February only
	rs := flatRuleset("main", 50000, 90000)
	rs.SalaryRules[0].Start = billing.NewMonthKey(2026, 2)

	// WHEN computing months 1-2
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN January contributes nothing and emits nothing
	require.Len(t, drafts, 1)
	assert.Equal(t, 2, drafts[0].ID.Month)
	assert.True(t, drafts[0].Amount.Equal(amount(50000)))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestRecomputationIsIdempotent(t *testing.T) {
	// GIVEN any input
	rs := flatRuleset("main", 100000, 90000)
	in := billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.June, 20),
	}

	// WHEN computing twice
	first := billing.ComputeDrafts(in)
	second := billing.ComputeDrafts(in)

	// THEN the draft sets are identical
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.True(t, first[i].Amount.Equal(second[i].Amount))
		assert.Equal(t, first[i].DisplayLabel, second[i].DisplayLabel)
	}
}

func TestNoCeilingMeansNoSplitting(t *testing.T) {
	// GIVEN a ruleset without a ceiling
	rs := flatRuleset("main", 100000, 0)

	// WHEN computing two eligible months
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{rs},
		Today:    onDate(time.March, 10),
	})

	// THEN each month is a single draft at full value
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].Amount.Equal(amount(100000)))
	assert.True(t, drafts[1].Amount.Equal(amount(100000)))
}

func TestMultipleRulesetsKeepConfigurationOrder(t *testing.T) {
	// GIVEN two rulesets
	a := flatRuleset("alpha", 50000, 90000)
	b := flatRuleset("beta", 30000, 90000)

	// WHEN computing
	drafts := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets: []billing.Ruleset{a, b},
		Today:    onDate(time.March, 10),
	})

	// THEN alpha's drafts precede beta's
	require.Len(t, drafts, 4)
	assert.Equal(t, billing.RulesetID("alpha"), drafts[0].ID.RulesetID)
	assert.Equal(t, billing.RulesetID("alpha"), drafts[1].ID.RulesetID)
	assert.Equal(t, billing.RulesetID("beta"), drafts[2].ID.RulesetID)
	assert.Equal(t, billing.RulesetID("beta"), drafts[3].ID.RulesetID)
}
