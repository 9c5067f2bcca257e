/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place. The engine itself degrades to zero/no-op
  for data-shape issues (missing salary rules, empty draft lists); only
  customer resolution at generation time is a user-visible failure, and
  it is surfaced per draft so unaffected drafts still succeed.

ERROR CATEGORIES:
  1. Resolution errors - No customer rule matched or target is gone
  2. Store errors - Missing rulesets/companies in persistence
  3. Generation errors - A draft that cannot proceed

USAGE:
  if errors.Is(err, billing.ErrNoCustomerMatch) {
      // mark this draft failed, continue with the rest
  }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoCustomerMatch is returned when no customer rule matches the
	// month, or the matched rule targets a company that no longer exists.
	ErrNoCustomerMatch = errors.New("no matching customer for month")

	// ErrRulesetNotFound is returned when a referenced ruleset doesn't exist.
	ErrRulesetNotFound = errors.New("ruleset not found")

	// ErrCompanyNotFound is returned when a referenced company doesn't exist.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrDraftNotFound is returned when a draft identity is unknown.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrDraftNotPending is returned when generation is requested for a
	// draft that is already generating or done.
	ErrDraftNotPending = errors.New("draft is not pending")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CustomerResolutionError reports why a single draft cannot be generated.
// It is fatal for that draft only.
type CustomerResolutionError struct {
	RulesetID RulesetID
	Month     int
	Target    CompanyID // empty when no rule matched at all
}

func (e *CustomerResolutionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("customer %s for ruleset %s month %d no longer exists", e.Target, e.RulesetID, e.Month)
	}
	return fmt.Sprintf("no customer rule matches month %d for ruleset %s", e.Month, e.RulesetID)
}

func (e *CustomerResolutionError) Unwrap() error {
	return ErrNoCustomerMatch
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRulesetNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrDraftNotFound)
}
