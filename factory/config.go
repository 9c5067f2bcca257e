/*
Package factory provides JSON to Go ruleset conversion.

PURPOSE:
  Converts JSON configuration documents into billing.Ruleset and
  billing.Company values. This keeps billing configuration out of code -
  the settings surface edits JSON, and the factory builds the proper Go
  structs for the engine.

JSON SCHEMA:
  {
    "companies": [
      {"id": "acme", "name": "ACME s.r.o.", "address": "...", "registration_no": "...", "vat_no": "..."}
    ],
    "rulesets": [
      {
        "id": "main",
        "name": "Consulting",
        "periodicity": "quarterly",
        "entitlement_day": 5,
        "due_days": 14,
        "minimize_invoices": true,
        "max_invoice_value": 90000,
        "salary_rules": [
          {"start": "2026-01", "end": "2026-12", "value": 50000, "deduction": 0}
        ],
        "customer_rules": [
          {"condition": "odd", "company_id": "acme"},
          {"condition": "default", "company_id": "globex"}
        ],
        "descriptions": ["Software development services"],
        "template": "default.odt"
      }
    ],
    "output_dir": "./invoices"
  }

DEFAULTS:
  - periodicity defaults to monthly; unknown values fall back to monthly
  - customer conditions default to "default"
  - amounts are JSON numbers, converted to decimal internally

SEE ALSO:
  - billing/types.go: Target types
  - store/sqlite: Persists ruleset documents as JSON columns
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/fakturak/billing-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the whole configuration document.
type ConfigJSON struct {
	Companies []CompanyJSON `json:"companies"`
	Rulesets  []RulesetJSON `json:"rulesets"`
	OutputDir string        `json:"output_dir,omitempty"`
}

// RulesetJSON is the JSON representation of one ruleset.
type RulesetJSON struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Periodicity      string             `json:"periodicity"`
	PeriodicityValue int                `json:"periodicity_value,omitempty"`
	EntitlementDay   int                `json:"entitlement_day"`
	DueDays          int                `json:"due_days,omitempty"`
	MinimizeInvoices bool               `json:"minimize_invoices,omitempty"`
	MaxInvoiceValue  float64            `json:"max_invoice_value"`
	SalaryRules      []SalaryRuleJSON   `json:"salary_rules,omitempty"`
	CustomerRules    []CustomerRuleJSON `json:"customer_rules,omitempty"`
	Descriptions     []string           `json:"descriptions,omitempty"`
	Template         string             `json:"template,omitempty"`
}

type SalaryRuleJSON struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Value     float64 `json:"value"`
	Deduction float64 `json:"deduction,omitempty"`
}

type CustomerRuleJSON struct {
	Condition string `json:"condition"`
	CompanyID string `json:"company_id"`
}

type CompanyJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty"`
	VATNo          string `json:"vat_no,omitempty"`
}

// Config is the parsed configuration. Ruleset order is preserved: the
// first ruleset is the one eligible for extra-value attribution.
type Config struct {
	Companies []billing.Company
	Rulesets  []billing.Ruleset
	OutputDir string
}

// =============================================================================
// RULESET FACTORY
// =============================================================================

type RulesetFactory struct{}

func NewRulesetFactory() *RulesetFactory {
	return &RulesetFactory{}
}

// ParseConfig parses a full configuration document.
func (f *RulesetFactory) ParseConfig(data []byte) (*Config, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := &Config{OutputDir: cj.OutputDir}
	for _, comp := range cj.Companies {
		cfg.Companies = append(cfg.Companies, billing.Company{
			ID:             billing.CompanyID(comp.ID),
			Name:           comp.Name,
			Address:        comp.Address,
			RegistrationNo: comp.RegistrationNo,
			VATNo:          comp.VATNo,
		})
	}
	for _, rj := range cj.Rulesets {
		rs, err := f.FromJSON(rj)
		if err != nil {
			return nil, err
		}
		cfg.Rulesets = append(cfg.Rulesets, *rs)
	}
	return cfg, nil
}

// ParseRuleset parses a single ruleset document.
func (f *RulesetFactory) ParseRuleset(data []byte) (*billing.Ruleset, error) {
	var rj RulesetJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RulesetJSON to billing.Ruleset.
func (f *RulesetFactory) FromJSON(rj RulesetJSON) (*billing.Ruleset, error) {
	rs := &billing.Ruleset{
		ID:               billing.RulesetID(rj.ID),
		Name:             rj.Name,
		Periodicity:      parsePeriodicity(rj.Periodicity),
		PeriodicityValue: rj.PeriodicityValue,
		EntitlementDay:   rj.EntitlementDay,
		DueDays:          rj.DueDays,
		MinimizeInvoices: rj.MinimizeInvoices,
		MaxInvoiceValue:  billing.NewAmount(rj.MaxInvoiceValue),
		Descriptions:     rj.Descriptions,
		TemplateRef:      rj.Template,
	}

	for _, sj := range rj.SalaryRules {
		start, err := billing.ParseMonthKey(sj.Start)
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: salary rule start: %w", rj.ID, err)
		}
		end, err := billing.ParseMonthKey(sj.End)
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: salary rule end: %w", rj.ID, err)
		}
		rs.SalaryRules = append(rs.SalaryRules, billing.SalaryRule{
			Start:     start,
			End:       end,
			Value:     billing.NewAmount(sj.Value),
			Deduction: billing.NewAmount(sj.Deduction),
		})
	}

	for _, cj := range rj.CustomerRules {
		rs.CustomerRules = append(rs.CustomerRules, billing.CustomerRule{
			Condition: parseCondition(cj.Condition),
			CompanyID: billing.CompanyID(cj.CompanyID),
		})
	}

	return rs, nil
}

// ToJSON converts a Ruleset back to its JSON representation.
func (f *RulesetFactory) ToJSON(rs billing.Ruleset) RulesetJSON {
	maxValue, _ := rs.MaxInvoiceValue.Value.Float64()
	rj := RulesetJSON{
		ID:               string(rs.ID),
		Name:             rs.Name,
		Periodicity:      string(rs.Periodicity),
		PeriodicityValue: rs.PeriodicityValue,
		EntitlementDay:   rs.EntitlementDay,
		DueDays:          rs.DueDays,
		MinimizeInvoices: rs.MinimizeInvoices,
		MaxInvoiceValue:  maxValue,
		Descriptions:     rs.Descriptions,
		Template:         rs.TemplateRef,
	}
	for _, sr := range rs.SalaryRules {
		value, _ := sr.Value.Value.Float64()
		deduction, _ := sr.Deduction.Value.Float64()
		rj.SalaryRules = append(rj.SalaryRules, SalaryRuleJSON{
			Start:     sr.Start.String(),
			End:       sr.End.String(),
			Value:     value,
			Deduction: deduction,
		})
	}
	for _, cr := range rs.CustomerRules {
		rj.CustomerRules = append(rj.CustomerRules, CustomerRuleJSON{
			Condition: string(cr.Condition),
			CompanyID: string(cr.CompanyID),
		})
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePeriodicity(s string) billing.Periodicity {
	switch s {
	case "quarterly":
		return billing.PeriodicityQuarterly
	case "yearly":
		return billing.PeriodicityYearly
	case "custom_months":
		return billing.PeriodicityCustomMonths
	case "custom_days":
		return billing.PeriodicityCustomDays
	default:
		return billing.PeriodicityMonthly
	}
}

func parseCondition(s string) billing.CustomerCondition {
	switch s {
	case "odd":
		return billing.CondOddMonth
	case "even":
		return billing.CondEvenMonth
	default:
		return billing.CondDefault
	}
}
