/*
Package store defines persistence for payroll inputs and settlements.

PURPOSE:
  The engine is pure. Everything it reads (compensation profiles, monthly
  events) and everything it produces (settlements, batch runs) is kept
  here, behind one interface, so the API and the scheduler never touch
  SQL directly.

KEY RECORDS:
  ProfileRecord:    Compensation profile of one employee (one per employee)
  EventRecord:      One dated monthly event
  SettlementRecord: A computed settlement plus the options that produced it
  RunRecord:        One batch settlement run over all employees

ONE SETTLEMENT PER MONTH:
  SaveSettlement rejects a second settlement for the same employee and
  month with ErrDuplicateSettlement. Re-settling a month is explicit:
  ReplaceSettlement overwrites it.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (production)
  - store/memory: In-memory (tests, demos)

SEE ALSO:
  - factory/result.go: How results are encoded for storage
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSettlement = errors.New("settlement already exists for this employee and month")
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// RECORDS
// =============================================================================

type ProfileRecord struct {
	EmployeeID string
	Profile    payroll.CompensationProfile
	UpdatedAt  time.Time
}

type EventRecord struct {
	ID         string
	EmployeeID string
	Event      payroll.Event
	CreatedAt  time.Time
}

type SettlementRecord struct {
	ID         string
	EmployeeID string
	Month      time.Month
	Year       int
	Options    payroll.Options
	Result     payroll.SettlementResult
	CreatedAt  time.Time
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord tracks one batch settlement. Settled, Skipped and Failed count
// employees; Errors holds one line per failed employee.
type RunRecord struct {
	ID          string
	Month       time.Month
	Year        int
	Trigger     string // "api" or "scheduler"
	Status      RunStatus
	Settled     int
	Skipped     int
	Failed      int
	Errors      []string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// SaveProfile inserts or replaces the profile of an employee.
	SaveProfile(ctx context.Context, rec ProfileRecord) error
	GetProfile(ctx context.Context, employeeID string) (ProfileRecord, error)
	// ListProfiles returns all profiles ordered by employee ID.
	ListProfiles(ctx context.Context) ([]ProfileRecord, error)

	AppendEvent(ctx context.Context, rec EventRecord) error
	// ListEvents returns the events of an employee dated in month/year,
	// ordered by date.
	ListEvents(ctx context.Context, employeeID string, month time.Month, year int) ([]EventRecord, error)
	DeleteEvent(ctx context.Context, id string) error

	// SaveSettlement returns ErrDuplicateSettlement if the month is
	// already settled for the employee.
	SaveSettlement(ctx context.Context, rec SettlementRecord) error
	// ReplaceSettlement overwrites any settlement for the same month.
	ReplaceSettlement(ctx context.Context, rec SettlementRecord) error
	GetSettlement(ctx context.Context, id string) (SettlementRecord, error)
	// ListSettlements returns an employee's settlements, newest period first.
	ListSettlements(ctx context.Context, employeeID string) ([]SettlementRecord, error)
	HasSettlement(ctx context.Context, employeeID string, month time.Month, year int) (bool, error)

	// SaveRun inserts or updates a run by ID.
	SaveRun(ctx context.Context, rec RunRecord) error
	// ListRuns returns runs, most recent first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// Reset clears all data (demos).
	Reset(ctx context.Context) error
	Close() error
}
