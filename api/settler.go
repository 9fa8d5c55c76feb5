/*
settler.go - Settle stored employees, one at a time or in batches

PURPOSE:
  Joins the store and the engine: loads a profile and the month's events,
  runs the settlement, logs its warnings and persists the result. Used by
  the settlement endpoints, the batch run endpoint and the scheduler.

BATCH RUNS:
  RunBatch settles every employee with a profile for one month using a
  bounded pool of workers. Employees already settled for the month are
  skipped, and one employee failing never stops the others. Each batch is
  recorded as a store.RunRecord.

SEE ALSO:
  - scheduler.go: Month-end trigger
  - handlers.go: CreateSettlement, CreateRun
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store"
	"go.uber.org/zap"
)

// Settler computes and stores settlements.
type Settler struct {
	Store  store.Store
	Engine payroll.Engine
	Logger *zap.Logger
	// Workers bounds concurrent settlements in RunBatch.
	Workers int

	now func() time.Time
}

func NewSettler(s store.Store, engine payroll.Engine, logger *zap.Logger) *Settler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settler{
		Store:   s,
		Engine:  engine,
		Logger:  logger,
		Workers: 4,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Settle settles one employee for month/year. With replace unset, an
// existing settlement for the month yields store.ErrDuplicateSettlement.
func (s *Settler) Settle(ctx context.Context, employeeID string, month time.Month, year int, opts payroll.Options, replace bool) (store.SettlementRecord, error) {
	profile, err := s.Store.GetProfile(ctx, employeeID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.SettlementRecord{}, fmt.Errorf("no compensation profile for %s: %w", employeeID, err)
		}
		return store.SettlementRecord{}, fmt.Errorf("failed to load profile: %w", err)
	}

	records, err := s.Store.ListEvents(ctx, employeeID, month, year)
	if err != nil {
		return store.SettlementRecord{}, fmt.Errorf("failed to load events: %w", err)
	}
	events := make([]payroll.Event, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}

	result := s.Engine.SettlePayroll(profile.Profile, events, month, year, opts)
	s.logWarnings(employeeID, result)

	rec := store.SettlementRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Month:      month,
		Year:       year,
		Options:    opts,
		Result:     result,
		CreatedAt:  s.now(),
	}
	if replace {
		err = s.Store.ReplaceSettlement(ctx, rec)
	} else {
		err = s.Store.SaveSettlement(ctx, rec)
	}
	if err != nil {
		return store.SettlementRecord{}, err
	}

	s.Logger.Info("settlement stored",
		zap.String("employee_id", employeeID),
		zap.String("settlement_id", rec.ID),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.String("net_payable", result.Totals.NetPayable.String()),
		zap.Bool("replaced", replace),
	)
	return rec, nil
}

func (s *Settler) logWarnings(employeeID string, result payroll.SettlementResult) {
	for _, w := range result.Warnings {
		s.Logger.Warn("settlement warning",
			zap.String("employee_id", employeeID),
			zap.String("code", string(w.Code)),
			zap.String("stage", string(w.Stage)),
			zap.String("message", w.Message),
		)
	}
}

// =============================================================================
// BATCH
// =============================================================================

// RunBatch settles every profiled employee not yet settled for month/year.
func (s *Settler) RunBatch(ctx context.Context, month time.Month, year int, trigger string) (store.RunRecord, error) {
	run := store.RunRecord{
		ID:        uuid.NewString(),
		Month:     month,
		Year:      year,
		Trigger:   trigger,
		Status:    store.RunRunning,
		StartedAt: s.now(),
	}
	if err := s.Store.SaveRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	profiles, err := s.Store.ListProfiles(ctx)
	if err != nil {
		return s.finishRun(ctx, run, store.RunFailed, err)
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for employeeID := range jobs {
				_, err := s.Settle(ctx, employeeID, month, year, payroll.Options{}, false)

				mu.Lock()
				switch {
				case err == nil:
					run.Settled++
				case errors.Is(err, store.ErrDuplicateSettlement):
					run.Skipped++
				default:
					run.Failed++
					run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", employeeID, err))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, p := range profiles {
		select {
		case jobs <- p.EmployeeID:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	sort.Strings(run.Errors)
	if err := ctx.Err(); err != nil {
		return s.finishRun(ctx, run, store.RunFailed, err)
	}

	s.Logger.Info("batch run completed",
		zap.String("run_id", run.ID),
		zap.String("trigger", trigger),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("settled", run.Settled),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
	return s.finishRun(ctx, run, store.RunCompleted, nil)
}

func (s *Settler) finishRun(ctx context.Context, run store.RunRecord, status store.RunStatus, cause error) (store.RunRecord, error) {
	completed := s.now()
	run.Status = status
	run.CompletedAt = &completed
	if cause != nil {
		run.Errors = append(run.Errors, cause.Error())
		s.Logger.Error("batch run failed", zap.String("run_id", run.ID), zap.Error(cause))
	}

	// The run outcome is recorded even if the batch context is done
	if err := s.Store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("failed to update run record: %w", err)
	}
	return run, cause
}
