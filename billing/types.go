/*
Package billing provides the invoice draft scheduling and accumulation engine.

PURPOSE:
  This package decides, for "now", which invoice drafts should exist for a
  set of recurring billing rulesets: how accrued monthly value is split or
  merged against a per-invoice ceiling, how an ad-hoc reimbursable pool is
  attributed across the newest invoices, and how user edits survive
  recomputation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal currency value (never float64 arithmetic)
  - Ruleset: A named recurring billing configuration
  - Draft: An uncommitted, recomputable invoice proposal
  - DraftID: Structural identity (ruleset, year, month, split index)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid drift across months of accumulation
  2. Purity: Drafts are recomputed wholesale; merging preserves user intent
  3. Type Safety: Strong typing for IDs prevents mixing ruleset/company IDs
  4. Stable identity: DraftID is a struct key, not a concatenated string

USAGE:
  drafts := billing.ComputeDrafts(billing.ComputeInput{
      Rulesets:          rulesets,
      Today:             time.Now(),
      LastInvoicedMonth: 2,
  })

SEE ALSO:
  - calendar.go: Billing month evaluation and period labels
  - accumulate.go: The month-walking accumulation fold
  - extra.go: Reimbursable pool attribution
  - reconcile.go: Merge with the previous draft set
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal currency value
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value))}
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero} }

func MustParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount()
	}
	return Amount{Value: d}
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterOrEqual(b Amount) bool { return a.Value.GreaterThanOrEqual(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RulesetID string
type CompanyID string

// =============================================================================
// RULESET - A recurring billing configuration
// =============================================================================

// Ruleset order matters to the engine: the FIRST ruleset in configuration
// order is the only one eligible to receive extra value (see extra.go).
type Ruleset struct {
	ID   RulesetID
	Name string

	Periodicity      Periodicity
	PeriodicityValue int // N for custom_months / custom_days

	// EntitlementDay is the day-of-month cutoff deciding whether the
	// previous month is already eligible for invoicing.
	EntitlementDay int

	// DueDays offsets the invoice due date from the generation date.
	DueDays int

	// MinimizeInvoices defers splitting across months: the accumulator is
	// emptied only on the final eligible month.
	MinimizeInvoices bool

	// MaxInvoiceValue is the per-invoice ceiling before splitting.
	MaxInvoiceValue Amount

	SalaryRules   []SalaryRule
	CustomerRules []CustomerRule

	// Description lines rendered on generated documents.
	Descriptions []string

	// TemplateRef names the document template used at generation time.
	TemplateRef string
}

// SalaryRule is a dated value interval at "YYYY-MM" granularity, inclusive
// on both ends. Lookup is first-interval-containing-the-month.
type SalaryRule struct {
	Start     MonthKey
	End       MonthKey
	Value     Amount
	Deduction Amount
}

// CustomerRule picks the billed counterparty for a month.
// Conditions are evaluated top to bottom; first match wins.
type CustomerRule struct {
	Condition CustomerCondition
	CompanyID CompanyID
}

type CustomerCondition string

const (
	CondOddMonth  CustomerCondition = "odd"
	CondEvenMonth CustomerCondition = "even"
	CondDefault   CustomerCondition = "default"
)

// Company is a billable counterparty.
type Company struct {
	ID             CompanyID
	Name           string
	Address        string
	RegistrationNo string
	VATNo          string
}

// =============================================================================
// DRAFT - An uncommitted invoice proposal
// =============================================================================

// DraftID is the composite identity of a draft. Structural equality makes
// it safe as a map key for merge-by-identity across recomputations.
type DraftID struct {
	RulesetID RulesetID
	Year      int
	Month     int
	Split     int
}

func (id DraftID) String() string {
	return fmt.Sprintf("%s-%d-%02d-%d", id.RulesetID, id.Year, id.Month, id.Split)
}

type DraftStatus string

const (
	StatusPending    DraftStatus = "pending"
	StatusGenerating DraftStatus = "generating"
	StatusDone       DraftStatus = "done"
	StatusError      DraftStatus = "error"
)

type Draft struct {
	ID DraftID

	Amount Amount

	// NetValue is the raw net salary value of the emission month.
	NetValue Amount

	// ExtraValue is the reimbursable portion folded into Amount.
	// Zero means "no extra"; it is omitted from display.
	ExtraValue Amount

	PeriodLabel  string
	DisplayLabel string
	Description  string

	// User-editable overrides, preserved across recomputation by identity.
	InvoiceNo      string
	VariableSymbol string

	Status   DraftStatus
	ErrorMsg string
}

// HasExtra reports whether a reimbursable portion was attributed.
func (d Draft) HasExtra() bool { return !d.ExtraValue.IsZero() }
