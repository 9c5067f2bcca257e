/*
Package sqlite provides the SQLite-backed persistence for the billing engine.

PURPOSE:
  Persists the slow-moving state around the engine: companies, ruleset
  configuration documents, the pending-edit side-table (so user overrides
  survive restarts), and the record of invoices actually generated.

  Draft sets themselves are NOT persisted - they are recomputed wholesale
  from configuration, the clock, and the archive watermark, then merged
  against the restored pending edits.

KEY TABLES:
  companies:          Billable counterparties
  rulesets:           Ruleset config documents (JSON column, ordered)
  pending_edits:      User overrides keyed by draft identity
  generated_invoices: One row per document actually produced
  settings:           Small key/value pairs (extra pool, output dir)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite WAL mode:
  multiple readers don't block, a single writer at a time.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/reconcile.go: Owner of the in-memory edit side-table
  - factory/config.go: Parses the ruleset JSON documents stored here
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fakturak/billing-engine/billing"
)

// Store implements persistence for the billing engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		registration_no TEXT,
		vat_no TEXT,
		created_at TEXT NOT NULL
	);

	-- Ruleset configuration documents. Position preserves configuration
	-- order; the lowest position is the extra-value-eligible ruleset.
	CREATE TABLE IF NOT EXISTS rulesets (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rulesets_position ON rulesets(position);

	-- User overrides keyed by draft identity. One row per draft.
	CREATE TABLE IF NOT EXISTS pending_edits (
		ruleset_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		split INTEGER NOT NULL,
		invoice_no TEXT,
		variable_symbol TEXT,
		description TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (ruleset_id, year, month, split)
	);

	-- Record of invoices actually produced. The watermark source of
	-- truth remains the output directory; this is the audit trail.
	CREATE TABLE IF NOT EXISTS generated_invoices (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		ruleset_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		split INTEGER NOT NULL,
		company_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		filename TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generated_year_month
		ON generated_invoices(year, month);
	CREATE INDEX IF NOT EXISTS idx_generated_ruleset
		ON generated_invoices(ruleset_id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Store) SaveCompany(ctx context.Context, c billing.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, address, registration_no, vat_no, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			registration_no = excluded.registration_no,
			vat_no = excluded.vat_no`,
		string(c.ID), c.Name, c.Address, c.RegistrationNo, c.VATNo,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetCompany(ctx context.Context, id billing.CompanyID) (*billing.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, registration_no, vat_no
		FROM companies WHERE id = ?`, string(id))

	var c billing.Company
	var cid string
	err := row.Scan(&cid, &c.Name, &c.Address, &c.RegistrationNo, &c.VATNo)
	if err == sql.ErrNoRows {
		return nil, billing.ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ID = billing.CompanyID(cid)
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]billing.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, registration_no, vat_no
		FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []billing.Company
	for rows.Next() {
		var c billing.Company
		var id string
		if err := rows.Scan(&id, &c.Name, &c.Address, &c.RegistrationNo, &c.VATNo); err != nil {
			return nil, err
		}
		c.ID = billing.CompanyID(id)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) DeleteCompany(ctx context.Context, id billing.CompanyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrCompanyNotFound
	}
	return nil
}

// =============================================================================
// RULESETS
// =============================================================================

// RulesetRecord is a stored ruleset configuration document.
type RulesetRecord struct {
	ID         string
	Position   int
	ConfigJSON string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *Store) SaveRuleset(ctx context.Context, rec RulesetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rulesets (id, position, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Position, rec.ConfigJSON, now, now)
	return err
}

func (s *Store) GetRuleset(ctx context.Context, id billing.RulesetID) (*RulesetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, position, config_json, created_at, updated_at
		FROM rulesets WHERE id = ?`, string(id))

	rec, err := scanRuleset(row.Scan)
	if err == sql.ErrNoRows {
		return nil, billing.ErrRulesetNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRulesets returns records in configuration order.
func (s *Store) ListRulesets(ctx context.Context) ([]RulesetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, config_json, created_at, updated_at
		FROM rulesets ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RulesetRecord
	for rows.Next() {
		rec, err := scanRuleset(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) DeleteRuleset(ctx context.Context, id billing.RulesetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rulesets WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrRulesetNotFound
	}
	return nil
}

func scanRuleset(scan func(...any) error) (*RulesetRecord, error) {
	var rec RulesetRecord
	var created, updated string
	if err := scan(&rec.ID, &rec.Position, &rec.ConfigJSON, &created, &updated); err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &rec, nil
}

// =============================================================================
// PENDING EDITS
// =============================================================================

// SavePendingEdits replaces the stored side-table atomically. Called after
// every reconciliation so the stored table mirrors the in-memory one.
func (s *Store) SavePendingEdits(ctx context.Context, edits map[billing.DraftID]billing.PendingEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_edits`); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for id, e := range edits {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pending_edits
				(ruleset_id, year, month, split, invoice_no, variable_symbol, description, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(id.RulesetID), id.Year, id.Month, id.Split,
			e.InvoiceNo, e.VariableSymbol, e.Description, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadPendingEdits restores the side-table, typically at startup.
func (s *Store) LoadPendingEdits(ctx context.Context) (map[billing.DraftID]billing.PendingEdit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ruleset_id, year, month, split, invoice_no, variable_symbol, description
		FROM pending_edits`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edits := make(map[billing.DraftID]billing.PendingEdit)
	for rows.Next() {
		var rulesetID string
		var id billing.DraftID
		var invoiceNo, variableSymbol, description sql.NullString
		if err := rows.Scan(&rulesetID, &id.Year, &id.Month, &id.Split,
			&invoiceNo, &variableSymbol, &description); err != nil {
			return nil, err
		}
		id.RulesetID = billing.RulesetID(rulesetID)

		var e billing.PendingEdit
		if invoiceNo.Valid {
			v := invoiceNo.String
			e.InvoiceNo = &v
		}
		if variableSymbol.Valid {
			v := variableSymbol.String
			e.VariableSymbol = &v
		}
		if description.Valid {
			v := description.String
			e.Description = &v
		}
		edits[id] = e
	}
	return edits, rows.Err()
}

// =============================================================================
// GENERATED INVOICES
// =============================================================================

// GeneratedInvoice is one produced document.
type GeneratedInvoice struct {
	ID          string
	RunID       string
	RulesetID   string
	Year        int
	Month       int
	Split       int
	CompanyID   string
	Amount      string
	Filename    string
	GeneratedAt time.Time
}

func (s *Store) RecordGeneratedInvoice(ctx context.Context, inv GeneratedInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_invoices
			(id, run_id, ruleset_id, year, month, split, company_id, amount, filename, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.RunID, inv.RulesetID, inv.Year, inv.Month, inv.Split,
		inv.CompanyID, inv.Amount, inv.Filename,
		inv.GeneratedAt.UTC().Format(time.RFC3339))
	return err
}

// ListGeneratedInvoices returns produced documents for a year, newest first.
func (s *Store) ListGeneratedInvoices(ctx context.Context, year int) ([]GeneratedInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, ruleset_id, year, month, split, company_id, amount, filename, generated_at
		FROM generated_invoices WHERE year = ?
		ORDER BY generated_at DESC`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []GeneratedInvoice
	for rows.Next() {
		var inv GeneratedInvoice
		var generated string
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.RulesetID, &inv.Year, &inv.Month,
			&inv.Split, &inv.CompanyID, &inv.Amount, &inv.Filename, &generated); err != nil {
			return nil, err
		}
		inv.GeneratedAt, _ = time.Parse(time.RFC3339, generated)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetSetting returns the stored value or "" when the key is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
