/*
Package sqlite provides a SQLite-backed store.Store.

PURPOSE:
  Persists compensation profiles, monthly events, settlements and batch
  runs. Profiles, events and results are stored as JSON documents using
  the factory encodings, so a settlement read back is line-for-line the
  settlement that was written.

KEY TABLES:
  profiles:        One compensation profile per employee
  events:          Dated monthly events (overtime, absences, advances, deductions)
  settlements:     Computed results, UNIQUE per employee and month
  settlement_runs: Batch runs (API or scheduler triggered)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single open connection so
  ":memory:" databases are shared by every query.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: Interface and records
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		employee_id TEXT PRIMARY KEY,
		profile_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_date TEXT NOT NULL,
		event_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Month lookups for a settlement (hot path)
	CREATE INDEX IF NOT EXISTS idx_events_employee_date
		ON events(employee_id, event_date);

	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		options_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		net_payable TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One settlement per employee and month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_period
		ON settlements(employee_id, year, month);

	CREATE TABLE IF NOT EXISTS settlement_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		triggered_by TEXT NOT NULL,
		status TEXT NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		errors_json TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_settlement_runs_period
		ON settlement_runs(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx executes fn within a database transaction. Callers hold s.mu.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// PROFILES
// =============================================================================

// SaveProfile inserts or replaces an employee's profile.
func (s *Store) SaveProfile(ctx context.Context, rec store.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(factory.ProfileToJSON(rec.Profile))
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO profiles (employee_id, profile_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			profile_json = excluded.profile_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, rec.EmployeeID, string(data), updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile retrieves an employee's profile.
func (s *Store) GetProfile(ctx context.Context, employeeID string) (store.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var profileJSON, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT profile_json, updated_at FROM profiles WHERE employee_id = ?",
		employeeID,
	).Scan(&profileJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return store.ProfileRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.ProfileRecord{}, err
	}
	return decodeProfile(employeeID, profileJSON, updatedAt)
}

// ListProfiles returns every stored profile.
func (s *Store) ListProfiles(ctx context.Context) ([]store.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, profile_json, updated_at FROM profiles ORDER BY employee_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []store.ProfileRecord
	for rows.Next() {
		var employeeID, profileJSON, updatedAt string
		if err := rows.Scan(&employeeID, &profileJSON, &updatedAt); err != nil {
			return nil, err
		}
		rec, err := decodeProfile(employeeID, profileJSON, updatedAt)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, rec)
	}
	return profiles, rows.Err()
}

func decodeProfile(employeeID, profileJSON, updatedAt string) (store.ProfileRecord, error) {
	var pj factory.ProfileJSON
	if err := json.Unmarshal([]byte(profileJSON), &pj); err != nil {
		return store.ProfileRecord{}, fmt.Errorf("failed to decode profile %s: %w", employeeID, err)
	}
	// Stored profiles were validated on the way in; convert without re-checking
	rec := store.ProfileRecord{
		EmployeeID: employeeID,
		Profile: payroll.CompensationProfile{
			Type:               payroll.CompensationType(pj.Type),
			PactatedMonthlyNet: pj.PactatedMonthlyNet,
			DailyRate:          pj.DailyRate,
			NormalHourRate:     pj.NormalHourRate,
			OvertimeHourRate:   pj.OvertimeHourRate,
			MealSubsidyEnabled: pj.MealSubsidyEnabled,
			DailyMealAllowance: pj.DailyMealAllowance,
		},
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// EVENTS
// =============================================================================

// AppendEvent stores one event.
func (s *Store) AppendEvent(ctx context.Context, rec store.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ej := factory.EventToJSON(rec.Event)
	data, err := json.Marshal(ej)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO events (id, employee_id, event_type, event_date, event_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, ej.Type, ej.Date, string(data),
		createdAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListEvents returns an employee's events dated in month/year.
func (s *Store) ListEvents(ctx context.Context, employeeID string, month time.Month, year int) ([]store.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	query := `
		SELECT id, employee_id, event_json, created_at
		FROM events
		WHERE employee_id = ? AND event_date >= ? AND event_date < ?
		ORDER BY event_date ASC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID,
		from.Format(factory.DateLayout), to.Format(factory.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []store.EventRecord
	for rows.Next() {
		var rec store.EventRecord
		var eventJSON, createdAt string
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &eventJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		var ej factory.EventJSON
		if err := json.Unmarshal([]byte(eventJSON), &ej); err != nil {
			return nil, fmt.Errorf("failed to decode event %s: %w", rec.ID, err)
		}
		if rec.Event, err = factory.EventFromJSON(ej); err != nil {
			return nil, fmt.Errorf("stored event %s: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
		events = append(events, rec)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event. Settlements already computed from it are
// left untouched.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

type optionsJSON struct {
	AdvanceTax       *decimal.Decimal `json:"advance_tax,omitempty"`
	MonthsWithoutTax *int             `json:"months_without_tax,omitempty"`
}

// SaveSettlement stores a settlement, refusing a second one for the month.
func (s *Store) SaveSettlement(ctx context.Context, rec store.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertSettlement(ctx, s.db, rec)
}

// ReplaceSettlement overwrites the month's settlement atomically.
func (s *Store) ReplaceSettlement(ctx context.Context, rec store.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM settlements WHERE employee_id = ? AND year = ? AND month = ?",
			rec.EmployeeID, rec.Year, int(rec.Month),
		)
		if err != nil {
			return fmt.Errorf("failed to clear settlement: %w", err)
		}
		return s.insertSettlement(ctx, tx, rec)
	})
}

func (s *Store) insertSettlement(ctx context.Context, db execer, rec store.SettlementRecord) error {
	resultJSON, err := factory.MarshalResult(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode settlement result: %w", err)
	}
	optsJSON, _ := json.Marshal(optionsJSON{
		AdvanceTax:       rec.Options.AdvanceTax,
		MonthsWithoutTax: rec.Options.MonthsWithoutTax,
	})
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO settlements (id, employee_id, year, month, options_json, result_json, net_payable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, rec.Year, int(rec.Month),
		string(optsJSON), string(resultJSON),
		rec.Result.Totals.NetPayable.String(),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return store.ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

const settlementColumns = "id, employee_id, year, month, options_json, result_json, created_at"

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, id string) (store.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?", id)
	if err != nil {
		return store.SettlementRecord{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return store.SettlementRecord{}, err
		}
		return store.SettlementRecord{}, store.ErrNotFound
	}
	return scanSettlement(rows)
}

// ListSettlements returns an employee's settlements, newest period first.
func (s *Store) ListSettlements(ctx context.Context, employeeID string) ([]store.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE employee_id = ? ORDER BY year DESC, month DESC",
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []store.SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, rec)
	}
	return settlements, rows.Err()
}

// HasSettlement reports whether the month is already settled.
func (s *Store) HasSettlement(ctx context.Context, employeeID string, month time.Month, year int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settlements WHERE employee_id = ? AND year = ? AND month = ?",
		employeeID, year, int(month),
	).Scan(&count)
	return count > 0, err
}

func scanSettlement(rows *sql.Rows) (store.SettlementRecord, error) {
	var (
		rec        store.SettlementRecord
		month      int
		optsJSON   string
		resultJSON string
		createdAt  string
	)
	if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Year, &month, &optsJSON, &resultJSON, &createdAt); err != nil {
		return rec, fmt.Errorf("failed to scan settlement: %w", err)
	}
	rec.Month = time.Month(month)

	var opts optionsJSON
	if err := json.Unmarshal([]byte(optsJSON), &opts); err != nil {
		return rec, fmt.Errorf("failed to decode settlement options: %w", err)
	}
	rec.Options = payroll.Options{AdvanceTax: opts.AdvanceTax, MonthsWithoutTax: opts.MonthsWithoutTax}

	result, err := factory.UnmarshalResult([]byte(resultJSON))
	if err != nil {
		return rec, err
	}
	rec.Result = result
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun inserts or updates a batch run.
func (s *Store) SaveRun(ctx context.Context, r store.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settlement_runs (id, year, month, triggered_by, status,
			settled, skipped, failed, errors_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			settled = excluded.settled,
			skipped = excluded.skipped,
			failed = excluded.failed,
			errors_json = excluded.errors_json,
			completed_at = excluded.completed_at
	`

	var errorsJSON sql.NullString
	if len(r.Errors) > 0 {
		data, _ := json.Marshal(r.Errors)
		errorsJSON = nullString(string(data))
	}
	var completedAt *string
	if r.CompletedAt != nil {
		ts := r.CompletedAt.Format(time.RFC3339)
		completedAt = &ts
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Year, int(r.Month), r.Trigger, string(r.Status),
		r.Settled, r.Skipped, r.Failed, errorsJSON,
		r.StartedAt.UTC().Format(timestampLayout), completedAt,
	)
	return err
}

// ListRuns returns batch runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, month, triggered_by, status, settled, skipped, failed,
			errors_json, started_at, completed_at
		FROM settlement_runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.RunRecord
	for rows.Next() {
		var r store.RunRecord
		var month int
		var status, startedAt string
		var errorsJSON, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Year, &month, &r.Trigger, &status, &r.Settled, &r.Skipped, &r.Failed,
			&errorsJSON, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.Month = time.Month(month)
		r.Status = store.RunStatus(status)
		r.StartedAt, _ = time.Parse(timestampLayout, startedAt)
		if errorsJSON.Valid {
			json.Unmarshal([]byte(errorsJSON.String), &r.Errors)
		}
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"settlements", "events", "profiles", "settlement_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
