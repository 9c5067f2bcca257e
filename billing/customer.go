package billing

// =============================================================================
// CUSTOMER RESOLVER - Conditional counterparty selection
// =============================================================================

// ResolveCustomer picks the billed counterparty for a month by evaluating
// the ruleset's customer rules top to bottom. A rule matches when its
// condition holds for the month AND its target company still exists.
//
// Failure here is fatal for the single draft being generated; it is
// reported to the caller and must not abort other drafts.
func ResolveCustomer(rs Ruleset, month int, companies []Company) (CompanyID, error) {
	known := make(map[CompanyID]bool, len(companies))
	for _, c := range companies {
		known[c.ID] = true
	}

	var lastTarget CompanyID
	for _, rule := range rs.CustomerRules {
		if !conditionMatches(rule.Condition, month) {
			continue
		}
		if known[rule.CompanyID] {
			return rule.CompanyID, nil
		}
		// Matched but the target is gone; remember it for the error.
		lastTarget = rule.CompanyID
	}
	return "", &CustomerResolutionError{RulesetID: rs.ID, Month: month, Target: lastTarget}
}

func conditionMatches(c CustomerCondition, month int) bool {
	switch c {
	case CondOddMonth:
		return month%2 != 0
	case CondEvenMonth:
		return month%2 == 0
	case CondDefault:
		return true
	default:
		return false
	}
}
