/*
handlers.go - HTTP handlers for the billing engine

PURPOSE:
  The UI-facing surface. Drafts are never served from storage: every
  listing triggers a full recomputation from configuration, the clock,
  the archive watermark and the extra pool, merged against the held draft
  set so user edits and completion status survive.

GENERATION:
  Generating a draft resolves the customer for its month. Resolution
  failure is fatal for that draft only - it is marked "error" and
  reported, while other drafts remain generatable. Document rendering
  itself lives outside this service; generation here records the
  produced-invoice row and the filename the renderer will use.

SEE ALSO:
  - server.go: Route wiring
  - scheduler.go: Background recomputation on clock ticks
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fakturak/billing-engine/archive"
	"github.com/fakturak/billing-engine/billing"
	"github.com/fakturak/billing-engine/factory"
	"github.com/fakturak/billing-engine/store/sqlite"
)

const settingExtraPool = "extra_pool"

// Handler wires the engine to HTTP.
type Handler struct {
	Store      *sqlite.Store
	Factory    *factory.RulesetFactory
	Reconciler *billing.Reconciler
	OutputDir  string
	Clock      func() time.Time
	Log        zerolog.Logger

	mu    sync.Mutex
	extra billing.Amount
}

func NewHandler(store *sqlite.Store, outputDir string, log zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Factory:    factory.NewRulesetFactory(),
		Reconciler: billing.NewReconciler(),
		OutputDir:  outputDir,
		Clock:      time.Now,
		Log:        log,
		extra:      billing.ZeroAmount(),
	}
}

// Restore loads persisted pending edits and the extra pool at startup.
func (h *Handler) Restore(ctx context.Context) error {
	edits, err := h.Store.LoadPendingEdits(ctx)
	if err != nil {
		return fmt.Errorf("restoring pending edits: %w", err)
	}
	h.Reconciler.RestoreEdits(edits)

	if raw, err := h.Store.GetSetting(ctx, settingExtraPool); err == nil && raw != "" {
		h.mu.Lock()
		h.extra = billing.MustParseAmount(raw)
		h.mu.Unlock()
	}
	return nil
}

// =============================================================================
// RECOMPUTATION
// =============================================================================

// Recompute runs the full pipeline: accumulation, extra attribution,
// reconciliation. It is idempotent and cheap; every draft read goes
// through here.
func (h *Handler) Recompute(ctx context.Context) ([]billing.Draft, error) {
	cfg, err := h.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	now := h.Clock()
	watermark, err := archive.LastInvoicedMonth(h.OutputDir, now.Year())
	if err != nil {
		return nil, err
	}

	base := billing.ComputeDrafts(billing.ComputeInput{
		Rulesets:          cfg.Rulesets,
		Today:             now,
		LastInvoicedMonth: watermark,
	})
	withExtra := billing.AttributeExtra(base, cfg.Rulesets, h.extraPool())
	final := h.Reconciler.Merge(withExtra)

	// Mirror the (possibly pruned) side-table to storage; a failure here
	// loses nothing until restart, so it only warns.
	if err := h.Store.SavePendingEdits(ctx, h.Reconciler.Edits()); err != nil {
		h.Log.Warn().Err(err).Msg("failed to persist pending edits")
	}
	return final, nil
}

func (h *Handler) loadConfig(ctx context.Context) (*factory.Config, error) {
	records, err := h.Store.ListRulesets(ctx)
	if err != nil {
		return nil, err
	}
	companies, err := h.Store.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &factory.Config{Companies: companies}
	for _, rec := range records {
		rs, err := h.Factory.ParseRuleset([]byte(rec.ConfigJSON))
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: %w", rec.ID, err)
		}
		cfg.Rulesets = append(cfg.Rulesets, *rs)
	}
	return cfg, nil
}

func (h *Handler) extraPool() billing.Amount {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.extra
}

// =============================================================================
// DRAFT HANDLERS
// =============================================================================

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.Recompute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftDTOs(drafts))
}

func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	h.ListDrafts(w, r)
}

func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	id, err := draftIDFromURL(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	var req EditDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}

	h.Reconciler.RecordEdit(id, billing.PendingEdit{
		InvoiceNo:      req.InvoiceNo,
		VariableSymbol: req.VariableSymbol,
		Description:    req.Description,
	})
	if err := h.Store.SavePendingEdits(r.Context(), h.Reconciler.Edits()); err != nil {
		h.Log.Warn().Err(err).Msg("failed to persist pending edits")
	}

	if d, ok := h.Reconciler.Draft(id); ok {
		writeJSON(w, http.StatusOK, toDraftDTO(d))
		return
	}
	// Edit recorded against an identity not currently held; it applies
	// on the next recomputation that produces it.
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := draftIDFromURL(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	draft, ok := h.Reconciler.Draft(id)
	if !ok {
		writeError(w, billing.ErrDraftNotFound)
		return
	}
	if draft.Status == billing.StatusDone || draft.Status == billing.StatusGenerating {
		writeError(w, billing.ErrDraftNotPending)
		return
	}

	cfg, err := h.loadConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var ruleset *billing.Ruleset
	for i := range cfg.Rulesets {
		if cfg.Rulesets[i].ID == id.RulesetID {
			ruleset = &cfg.Rulesets[i]
			break
		}
	}
	if ruleset == nil {
		writeError(w, billing.ErrRulesetNotFound)
		return
	}

	h.Reconciler.MarkStatus(id, billing.StatusGenerating, "")

	companyID, err := billing.ResolveCustomer(*ruleset, id.Month, cfg.Companies)
	if err != nil {
		// Fatal for this draft only; others stay generatable.
		h.Reconciler.MarkStatus(id, billing.StatusError, err.Error())
		h.Log.Error().Err(err).Str("draft", id.String()).Msg("customer resolution failed")
		writeError(w, err)
		return
	}

	now := h.Clock()
	filename := archive.Filename(string(id.RulesetID), id.Year, id.Month, id.Split, "pdf")
	runID := uuid.NewString()

	rec := sqlite.GeneratedInvoice{
		ID:          uuid.NewString(),
		RunID:       runID,
		RulesetID:   string(id.RulesetID),
		Year:        id.Year,
		Month:       id.Month,
		Split:       id.Split,
		CompanyID:   string(companyID),
		Amount:      draft.Amount.String(),
		Filename:    filename,
		GeneratedAt: now,
	}
	if err := h.Store.RecordGeneratedInvoice(r.Context(), rec); err != nil {
		h.Reconciler.MarkStatus(id, billing.StatusError, err.Error())
		writeError(w, err)
		return
	}

	h.Reconciler.MarkStatus(id, billing.StatusDone, "")
	done, _ := h.Reconciler.Draft(id)

	writeJSON(w, http.StatusOK, GenerateResponse{
		Draft:     toDraftDTO(done),
		CompanyID: string(companyID),
		Filename:  filename,
		DueDate:   now.AddDate(0, 0, ruleset.DueDays).Format("2006-01-02"),
	})
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	var dto CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, err)
		return
	}
	if dto.ID == "" || dto.Name == "" {
		writeBadRequest(w, errors.New("company id and name are required"))
		return
	}
	if err := h.Store.SaveCompany(r.Context(), dto.toCompany()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id := billing.CompanyID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteCompany(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RULESET HANDLERS
// =============================================================================

func (h *Handler) ListRulesets(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRulesets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]RulesetDTO, 0, len(records))
	for _, rec := range records {
		rs, err := h.Factory.ParseRuleset([]byte(rec.ConfigJSON))
		if err != nil {
			writeError(w, fmt.Errorf("ruleset %s: %w", rec.ID, err))
			return
		}
		dtos = append(dtos, RulesetDTO{Position: rec.Position, Config: h.Factory.ToJSON(*rs)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveRuleset(w http.ResponseWriter, r *http.Request) {
	var dto RulesetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, err)
		return
	}
	if dto.Config.ID == "" {
		writeBadRequest(w, errors.New("ruleset id is required"))
		return
	}

	// Round-trip through the factory to validate before storing.
	configJSON, err := json.Marshal(dto.Config)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := h.Factory.ParseRuleset(configJSON); err != nil {
		writeBadRequest(w, err)
		return
	}

	rec := sqlite.RulesetRecord{
		ID:         dto.Config.ID,
		Position:   dto.Position,
		ConfigJSON: string(configJSON),
	}
	if err := h.Store.SaveRuleset(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetRuleset(w http.ResponseWriter, r *http.Request) {
	id := billing.RulesetID(chi.URLParam(r, "id"))
	rec, err := h.Store.GetRuleset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	rs, err := h.Factory.ParseRuleset([]byte(rec.ConfigJSON))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RulesetDTO{Position: rec.Position, Config: h.Factory.ToJSON(*rs)})
}

func (h *Handler) DeleteRuleset(w http.ResponseWriter, r *http.Request) {
	id := billing.RulesetID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteRuleset(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXTRA POOL / WATERMARK / GENERATED INVOICES
// =============================================================================

func (h *Handler) GetExtraPool(w http.ResponseWriter, r *http.Request) {
	extra, _ := h.extraPool().Value.Float64()
	writeJSON(w, http.StatusOK, ExtraPoolDTO{Extra: extra})
}

func (h *Handler) SetExtraPool(w http.ResponseWriter, r *http.Request) {
	var dto ExtraPoolDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeBadRequest(w, err)
		return
	}

	amount := billing.NewAmount(dto.Extra)
	h.mu.Lock()
	h.extra = amount
	h.mu.Unlock()

	if err := h.Store.SetSetting(r.Context(), settingExtraPool, amount.String()); err != nil {
		h.Log.Warn().Err(err).Msg("failed to persist extra pool")
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetWatermark(w http.ResponseWriter, r *http.Request) {
	year := h.Clock().Year()
	last, err := archive.LastInvoicedMonth(h.OutputDir, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WatermarkDTO{Year: year, LastInvoicedMonth: last})
}

func (h *Handler) ListGeneratedInvoices(w http.ResponseWriter, r *http.Request) {
	year := h.Clock().Year()
	if q := r.URL.Query().Get("year"); q != "" {
		if y, err := strconv.Atoi(q); err == nil {
			year = y
		}
	}
	invoices, err := h.Store.ListGeneratedInvoices(r.Context(), year)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]GeneratedInvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toGeneratedInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func draftIDFromURL(r *http.Request) (billing.DraftID, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return billing.DraftID{}, fmt.Errorf("invalid year: %w", err)
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return billing.DraftID{}, errors.New("invalid month")
	}
	split, err := strconv.Atoi(chi.URLParam(r, "split"))
	if err != nil || split < 0 {
		return billing.DraftID{}, errors.New("invalid split index")
	}
	return billing.DraftID{
		RulesetID: billing.RulesetID(chi.URLParam(r, "ruleset")),
		Year:      year,
		Month:     month,
		Split:     split,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case billing.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, billing.ErrNoCustomerMatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, billing.ErrDraftNotPending):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
