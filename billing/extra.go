/*
extra.go - Reimbursable pool attribution

PURPOSE:
  Redistributes an externally supplied lump sum (reimbursable items
  collected since the last invoice) across the LAST month's drafts of the
  FIRST ruleset in configuration order. No other ruleset's drafts and no
  earlier month's drafts are touched.

HOW:
  The last month's total is recomputed as baseTotal + extra and re-split
  with the same ceiling logic the accumulation engine uses. Each
  regenerated draft consumes base value first; whatever of its amount the
  base cannot cover is its extra portion, so the remainder draft absorbs
  the leftover extra.

GUARANTEES:
  - Total after attribution = baseTotal + extra, exactly.
  - No draft's extra portion exceeds its amount.
  - Draft identities are preserved so reconciliation can match prior edits.
  - Called with no drafts for the first ruleset, this is a no-op.
*/
package billing

import "strings"

// AttributeExtra folds the extra pool into the newest drafts of the first
// configured ruleset and returns the reassembled draft list.
func AttributeExtra(drafts []Draft, rulesets []Ruleset, extra Amount) []Draft {
	if !extra.IsPositive() || len(rulesets) == 0 {
		return drafts
	}
	rs := rulesets[0]

	var firstDrafts, otherDrafts []Draft
	for _, d := range drafts {
		if d.ID.RulesetID == rs.ID {
			firstDrafts = append(firstDrafts, d)
		} else {
			otherDrafts = append(otherDrafts, d)
		}
	}
	if len(firstDrafts) == 0 {
		return drafts
	}

	lastMonth := firstDrafts[0].ID.Month
	for _, d := range firstDrafts {
		if d.ID.Month > lastMonth {
			lastMonth = d.ID.Month
		}
	}

	var earlier, lastDrafts []Draft
	for _, d := range firstDrafts {
		if d.ID.Month == lastMonth {
			lastDrafts = append(lastDrafts, d)
		} else {
			earlier = append(earlier, d)
		}
	}

	regenerated := respreadMonth(rs, lastDrafts, extra)

	out := make([]Draft, 0, len(earlier)+len(regenerated)+len(otherDrafts))
	out = append(out, earlier...)
	out = append(out, regenerated...)
	out = append(out, otherDrafts...)
	return out
}

// respreadMonth rebuilds one month's drafts against baseTotal+extra and
// attributes the extra by consuming base value first.
func respreadMonth(rs Ruleset, lastDrafts []Draft, extra Amount) []Draft {
	baseTotal := ZeroAmount()
	for _, d := range lastDrafts {
		baseTotal = baseTotal.Add(d.Amount)
	}
	newTotal := baseTotal.Add(extra)

	year := lastDrafts[0].ID.Year
	month := lastDrafts[0].ID.Month
	net := lastDrafts[0].NetValue

	// The last emitted month was the end of the walk, so the split runs
	// in its end-of-range form: full parts plus an emitted remainder.
	parts := splitAmounts(rs, newTotal, true)
	isFlush := rs.MinimizeInvoices

	remainingBase := baseTotal
	drafts := make([]Draft, 0, len(parts))
	for i, p := range parts {
		consumed := p
		if remainingBase.LessThan(p) {
			consumed = remainingBase
		}
		partExtra := p.Sub(consumed)
		remainingBase = remainingBase.Sub(consumed)

		drafts = append(drafts, Draft{
			ID:           DraftID{RulesetID: rs.ID, Year: year, Month: month, Split: i},
			Amount:       p,
			NetValue:     net,
			ExtraValue:   partExtra,
			PeriodLabel:  PeriodLabel(year, month, rs),
			DisplayLabel: displayLabel(rs, year, month, i, len(parts), isFlush, true, newTotal),
			Description:  strings.Join(rs.Descriptions, "\n"),
			Status:       StatusPending,
		})
	}
	return drafts
}
