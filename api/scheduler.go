/*
scheduler.go - Automated month-end settlement scheduler

PURPOSE:
  Periodically settles the month that just closed for every employee
  with a compensation profile and no settlement for that month yet.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets the calendar month before the current one
  - Employees already settled are skipped, so ticks are idempotent
  - Each tick that finds work is recorded as a run for audit

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSettlementScheduler(settler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - settler.go: RunBatch
  - handlers.go: CreateRun endpoint (manual batch)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SettlementScheduler handles automated month-end settlement.
type SettlementScheduler struct {
	Settler       *Settler
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSettlementScheduler creates a new scheduler.
func NewSettlementScheduler(settler *Settler, logger *zap.Logger) *SettlementScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementScheduler{
		Settler:       settler,
		Logger:        logger.Named("scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the scheduler.
func (ss *SettlementScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.Logger.Info("disabled, not starting")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)

	go ss.run(ss.ticker, ss.stop)

	ss.Logger.Info("started", zap.Duration("check_interval", ss.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight tick.
func (ss *SettlementScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.ticker = nil
		ss.Logger.Info("stopped")
	}
}

func (ss *SettlementScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ss.wg.Done()

	// Stop cancels an in-flight batch
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run immediately on start
	ss.checkAndProcess(ctx)

	for {
		select {
		case <-ticker.C:
			ss.checkAndProcess(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (ss *SettlementScheduler) RunNow(ctx context.Context) {
	ss.checkAndProcess(ctx)
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ss *SettlementScheduler) GetNextRunTime() time.Time {
	return ss.now().Add(ss.CheckInterval)
}

// PeriodToSettle is the calendar month before now.
func PeriodToSettle(now time.Time) (time.Month, int) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Month(), prev.Year()
}

func (ss *SettlementScheduler) checkAndProcess(ctx context.Context) {
	month, year := PeriodToSettle(ss.now())
	log := ss.Logger.With(zap.Int("year", year), zap.Int("month", int(month)))

	profiles, err := ss.Settler.Store.ListProfiles(ctx)
	if err != nil {
		log.Error("error listing profiles", zap.Error(err))
		return
	}

	pending := 0
	for _, p := range profiles {
		done, err := ss.Settler.Store.HasSettlement(ctx, p.EmployeeID, month, year)
		if err != nil {
			log.Error("error checking settlement status", zap.String("employee_id", p.EmployeeID), zap.Error(err))
			continue
		}
		if !done {
			pending++
		}
	}
	if pending == 0 {
		log.Debug("nothing to settle")
		return
	}

	run, err := ss.Settler.RunBatch(ctx, month, year, "scheduler")
	if err != nil {
		log.Error("batch run failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	log.Info("completed",
		zap.String("run_id", run.ID),
		zap.Int("settled", run.Settled),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
}
