/*
dto.go - HTTP request/response shapes

PURPOSE:
  Keeps the wire format separate from engine types. Amounts cross the
  wire as JSON numbers; internally everything stays decimal.
*/
package api

import (
	"github.com/fakturak/billing-engine/billing"
	"github.com/fakturak/billing-engine/factory"
	"github.com/fakturak/billing-engine/store/sqlite"
)

// =============================================================================
// DRAFTS
// =============================================================================

type DraftDTO struct {
	ID             string   `json:"id"`
	RulesetID      string   `json:"ruleset_id"`
	Year           int      `json:"year"`
	Month          int      `json:"month"`
	Split          int      `json:"split"`
	Amount         float64  `json:"amount"`
	NetValue       float64  `json:"net_value"`
	ExtraValue     *float64 `json:"extra_value,omitempty"`
	PeriodLabel    string   `json:"period_label"`
	DisplayLabel   string   `json:"display_label"`
	Description    string   `json:"description"`
	InvoiceNo      string   `json:"invoice_no,omitempty"`
	VariableSymbol string   `json:"variable_symbol,omitempty"`
	Status         string   `json:"status"`
	Error          string   `json:"error,omitempty"`
}

func toDraftDTO(d billing.Draft) DraftDTO {
	amount, _ := d.Amount.Value.Float64()
	net, _ := d.NetValue.Value.Float64()

	dto := DraftDTO{
		ID:             d.ID.String(),
		RulesetID:      string(d.ID.RulesetID),
		Year:           d.ID.Year,
		Month:          d.ID.Month,
		Split:          d.ID.Split,
		Amount:         amount,
		NetValue:       net,
		PeriodLabel:    d.PeriodLabel,
		DisplayLabel:   d.DisplayLabel,
		Description:    d.Description,
		InvoiceNo:      d.InvoiceNo,
		VariableSymbol: d.VariableSymbol,
		Status:         string(d.Status),
		Error:          d.ErrorMsg,
	}
	if d.HasExtra() {
		extra, _ := d.ExtraValue.Value.Float64()
		dto.ExtraValue = &extra
	}
	return dto
}

func toDraftDTOs(drafts []billing.Draft) []DraftDTO {
	dtos := make([]DraftDTO, len(drafts))
	for i, d := range drafts {
		dtos[i] = toDraftDTO(d)
	}
	return dtos
}

// EditDraftRequest carries the user-editable fields. Absent fields leave
// earlier edits intact.
type EditDraftRequest struct {
	InvoiceNo      *string `json:"invoice_no,omitempty"`
	VariableSymbol *string `json:"variable_symbol,omitempty"`
	Description    *string `json:"description,omitempty"`
}

// GenerateResponse reports the outcome of generating one draft.
type GenerateResponse struct {
	Draft     DraftDTO `json:"draft"`
	CompanyID string   `json:"company_id,omitempty"`
	Filename  string   `json:"filename,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
}

// =============================================================================
// COMPANIES
// =============================================================================

type CompanyDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	RegistrationNo string `json:"registration_no,omitempty"`
	VATNo          string `json:"vat_no,omitempty"`
}

func toCompanyDTO(c billing.Company) CompanyDTO {
	return CompanyDTO{
		ID:             string(c.ID),
		Name:           c.Name,
		Address:        c.Address,
		RegistrationNo: c.RegistrationNo,
		VATNo:          c.VATNo,
	}
}

func (dto CompanyDTO) toCompany() billing.Company {
	return billing.Company{
		ID:             billing.CompanyID(dto.ID),
		Name:           dto.Name,
		Address:        dto.Address,
		RegistrationNo: dto.RegistrationNo,
		VATNo:          dto.VATNo,
	}
}

// =============================================================================
// RULESETS
// =============================================================================

// RulesetDTO wraps the configuration document with its position.
type RulesetDTO struct {
	Position int                 `json:"position"`
	Config   factory.RulesetJSON `json:"config"`
}

// =============================================================================
// MISC
// =============================================================================

type ExtraPoolDTO struct {
	Extra float64 `json:"extra"`
}

type WatermarkDTO struct {
	Year              int `json:"year"`
	LastInvoicedMonth int `json:"last_invoiced_month"`
}

type GeneratedInvoiceDTO struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	RulesetID   string `json:"ruleset_id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Split       int    `json:"split"`
	CompanyID   string `json:"company_id"`
	Amount      string `json:"amount"`
	Filename    string `json:"filename"`
	GeneratedAt string `json:"generated_at"`
}

func toGeneratedInvoiceDTO(inv sqlite.GeneratedInvoice) GeneratedInvoiceDTO {
	return GeneratedInvoiceDTO{
		ID:          inv.ID,
		RunID:       inv.RunID,
		RulesetID:   inv.RulesetID,
		Year:        inv.Year,
		Month:       inv.Month,
		Split:       inv.Split,
		CompanyID:   inv.CompanyID,
		Amount:      inv.Amount,
		Filename:    inv.Filename,
		GeneratedAt: inv.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
