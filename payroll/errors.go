/*
errors.go - Diagnostics and configuration errors

PURPOSE:
  The settlement itself never fails. What can go wrong is reported in
  two ways:
  1. Warnings - attached to a SettlementResult (e.g. solver did not
     converge within its iteration budget; the value is still used)
  2. Errors - only when building an Engine from bad configuration

USAGE:
  result := engine.SettlePayroll(...)
  for _, w := range result.Warnings {
      log.Warn(w.Message, zap.String("code", string(w.Code)))
  }

  if errors.Is(err, payroll.ErrInvalidSchedule) { ... }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// WARNINGS
// =============================================================================

type WarningCode string

const (
	WarnSolverNotConverged WarningCode = "solver_not_converged"
	WarnAbsenceExceedsBase WarningCode = "absence_exceeds_base"
	WarnAdvanceTaxExceeds  WarningCode = "advance_tax_exceeds_tax"
)

// Warning is a non-fatal diagnostic produced during a run.
type Warning struct {
	Code    WarningCode
	Stage   Stage
	Message string
}

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

var (
	// ErrInvalidSchedule is returned when a bracket table is malformed.
	ErrInvalidSchedule = errors.New("invalid tax schedule")

	// ErrInvalidSolverConfig is returned for non-positive solver constants.
	ErrInvalidSolverConfig = errors.New("invalid solver config")

	// ErrInvalidRates is returned for negative contribution rates.
	ErrInvalidRates = errors.New("invalid deduction rates")
)

// ScheduleError points at the offending bracket.
type ScheduleError struct {
	Index  int
	Reason string
}

func (e *ScheduleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid tax schedule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tax schedule: bracket %d: %s", e.Index, e.Reason)
}

func (e *ScheduleError) Unwrap() error {
	return ErrInvalidSchedule
}
