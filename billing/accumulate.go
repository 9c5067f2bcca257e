/*
accumulate.go - The month-walking accumulation engine

PURPOSE:
  For each ruleset, walks the eligible month range, accrues net monthly
  value into an accumulator, and emits invoice drafts on billing months
  according to the max-invoice-value ceiling and the minimize-invoices
  carry-over policy.

THE WALK:
  startMonth = lastInvoicedMonth + 1
  endMonth   = currentMonth - 1  (entitlement day already passed)
             = currentMonth - 2  (entitlement day still ahead)

  Per month:
    1. Accrue the month's net salary value.
    2. Non-billing months accumulate silently (quarterly/yearly "save up").
    3. On a billing month, split the accumulator into full drafts of the
       ceiling value plus one remainder.
    4. Under minimize-invoices, the remainder is carried forward instead,
       except on the final eligible month (the flush), where the
       accumulator is always emptied - even if that month is not a
       natural billing boundary.

  The walk is an explicit fold carrying (accumulator, emitted drafts);
  label math takes the accumulator snapshot at flush start.

INVARIANTS:
  - Value conservation: the sum of emitted draft amounts over a contiguous
    range equals the sum of net monthly values the range released.
  - Identity stability: (ruleset, year, month, split) is unchanged across
    recomputation while the underlying sequence is unchanged.

SEE ALSO:
  - calendar.go: IsBillingMonth / PeriodLabel
  - salary.go: Net monthly value resolution
  - extra.go: Reuses the same split for the reimbursable pool
*/
package billing

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// COMPUTE INPUT
// =============================================================================

// ComputeInput bundles everything the engine needs for one run.
// Runs are idempotent: identical inputs yield identical draft sets.
type ComputeInput struct {
	Rulesets []Ruleset

	// Today is the clock reading; its year anchors the month walk and its
	// day decides entitlement against each ruleset's cutoff.
	Today time.Time

	// LastInvoicedMonth is the watermark (month-of-year, 0 = nothing
	// invoiced yet) read from prior output.
	LastInvoicedMonth int
}

// =============================================================================
// ACCUMULATION ENGINE
// =============================================================================

// ComputeDrafts runs the accumulation walk for every ruleset and returns
// the full base draft set, in ruleset order then month order.
func ComputeDrafts(in ComputeInput) []Draft {
	var all []Draft
	for _, rs := range in.Rulesets {
		all = append(all, computeRulesetDrafts(rs, in.Today, in.LastInvoicedMonth)...)
	}
	return all
}

func computeRulesetDrafts(rs Ruleset, today time.Time, lastInvoiced int) []Draft {
	start := lastInvoiced + 1
	end := EligibleEndMonth(today, rs.EntitlementDay)
	if start > end {
		// Nothing due yet for this ruleset.
		return nil
	}

	year := today.Year()
	acc := ZeroAmount()
	var drafts []Draft

	for m := start; m <= end; m++ {
		net := ResolveSalary(rs, year, m).Net()
		acc = acc.Add(net)

		isFlush := rs.MinimizeInvoices && m == end
		if !IsBillingMonth(m, rs) && !isFlush {
			continue
		}

		var emitted []Draft
		emitted, acc = emitMonth(rs, year, m, end, acc, net)
		drafts = append(drafts, emitted...)
	}
	return drafts
}

// emitMonth splits the accumulator for one billing (or flush) month into
// drafts and returns the drafts plus the accumulator to carry forward.
func emitMonth(rs Ruleset, year, m, end int, acc, net Amount) ([]Draft, Amount) {
	isFlush := rs.MinimizeInvoices && m == end
	flushStart := acc

	parts := splitAmounts(rs, acc, m == end)
	carried := acc
	for _, p := range parts {
		carried = carried.Sub(p)
	}

	drafts := make([]Draft, 0, len(parts))
	for i, p := range parts {
		drafts = append(drafts, Draft{
			ID:           DraftID{RulesetID: rs.ID, Year: year, Month: m, Split: i},
			Amount:       p,
			NetValue:     net,
			PeriodLabel:  PeriodLabel(year, m, rs),
			DisplayLabel: displayLabel(rs, year, m, i, len(parts), isFlush, m == end, flushStart),
			Description:  strings.Join(rs.Descriptions, "\n"),
			Status:       StatusPending,
		})
	}
	return drafts, carried
}

// splitAmounts applies the ceiling split: full parts of MaxInvoiceValue,
// then one remainder - unless minimize-invoices carries it past a
// non-final month.
func splitAmounts(rs Ruleset, acc Amount, atEnd bool) []Amount {
	var parts []Amount
	if rs.MaxInvoiceValue.IsPositive() {
		for acc.GreaterOrEqual(rs.MaxInvoiceValue) {
			parts = append(parts, rs.MaxInvoiceValue)
			acc = acc.Sub(rs.MaxInvoiceValue)
		}
	}
	if acc.IsPositive() {
		if rs.MinimizeInvoices && !atEnd {
			return parts // remainder rides along to the next month
		}
		parts = append(parts, acc)
	}
	return parts
}

// displayLabel composes "{periodLabel} ({rulesetName})" with a split
// suffix. Under flush mode, parts after the first are "Remainder" or
// "Remainder i/n" with n taken from the accumulator snapshot at flush
// start. Outside flush mode, second and later parts get "Part k" on the
// final eligible month only; a non-final remainder is "Remainder".
func displayLabel(rs Ruleset, year, m, idx, total int, isFlush, atEnd bool, flushStart Amount) string {
	base := fmt.Sprintf("%s (%s)", PeriodLabel(year, m, rs), rs.Name)
	if idx == 0 {
		return base
	}

	if isFlush && total > 1 {
		remCount := flushPartCount(flushStart, rs.MaxInvoiceValue) - 1
		if remCount <= 1 {
			return base + " Remainder"
		}
		return fmt.Sprintf("%s Remainder %d/%d", base, idx, remCount)
	}

	if atEnd {
		return fmt.Sprintf("%s Part %d", base, idx+1)
	}
	if idx == total-1 {
		return base + " Remainder"
	}
	return base
}

// flushPartCount is ceil(flushStart / ceiling), the total number of parts
// a flush produces.
func flushPartCount(flushStart, ceiling Amount) int {
	if !ceiling.IsPositive() {
		return 1
	}
	return int(flushStart.Value.Div(ceiling.Value).Ceil().IntPart())
}
