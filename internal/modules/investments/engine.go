package investments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/locks"
	"github.com/flexinvest/platform/internal/metrics"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

const moduleName = "investments"

// LedgerStore is the storage the accrual engine runs against
type LedgerStore interface {
	Ping(ctx context.Context) error
	ListActiveInvestments(ctx context.Context) ([]domain.Investment, error)
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
}

// RunStore records accrual runs. It is the exclusion point between processes
// that share ledger.db without a shared locker.
type RunStore interface {
	Claim(ctx context.Context, run *RunSummary, liveSince time.Time, dedupByDate bool) error
	Heartbeat(ctx context.Context, id string, at time.Time) error
	Finish(ctx context.Context, run *RunSummary) error
	AbortInterrupted(ctx context.Context, staleBefore, now time.Time) (int64, error)
}

// DefaultStaleRunAfter is used when EngineConfig.StaleRunAfter is not set
const DefaultStaleRunAfter = 10 * time.Minute

// EngineConfig tunes the accrual engine
type EngineConfig struct {
	// DedupByDate refuses a run when a completed run already exists for the
	// current UTC date. Off by default: two runs on one day accrue twice.
	DedupByDate bool
	// StaleRunAfter is how long a running record may go without a heartbeat
	// before it is considered left behind by a dead process. A live run beats
	// every StaleRunAfter/4.
	StaleRunAfter time.Duration
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Engine advances every active investment by one day, accrues profit and
// settles matured investments into the owner's wallet.
//
// Each investment is processed in its own transaction. Settlement (status
// flip plus wallet credit) is atomic; the completion event is emitted only
// after the commit and never affects the ledger.
//
// Every run emits the operational ACCRUAL_RUN_STARTED and ACCRUAL_RUN_FINISHED
// events, including a run with no active investments. User-facing events
// (INVESTMENT_COMPLETED) fire only for settled investments.
type Engine struct {
	store      LedgerStore
	runs       RunStore
	locker     locks.Locker
	emitter    events.Emitter
	metrics    *metrics.Metrics
	dedup      bool
	staleAfter time.Duration
	heartbeat  time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewEngine creates an accrual engine.
//
// Parameters:
//   - store: Ledger store holding investments and wallets
//   - runs: Accrual run records
//   - locker: Locker for the run-level lock (shared across processes when Redis-backed)
//   - emitter: Post-commit event sink
//   - cfg: Engine options
//   - log: Structured logger
func NewEngine(store LedgerStore, runs RunStore, locker locks.Locker, emitter events.Emitter, cfg EngineConfig, log zerolog.Logger) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	staleAfter := cfg.StaleRunAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleRunAfter
	}

	return &Engine{
		store:      store,
		runs:       runs,
		locker:     locker,
		emitter:    emitter,
		metrics:    cfg.Metrics,
		dedup:      cfg.DedupByDate,
		staleAfter: staleAfter,
		heartbeat:  staleAfter / 4,
		now:        now,
		log:        log.With().Str("service", "accrual_engine").Logger(),
	}
}

// RunDailyAccrual runs the daily batch as the scheduler would
func (e *Engine) RunDailyAccrual(ctx context.Context) (*RunSummary, error) {
	return e.Run(ctx, TriggerSchedule)
}

// Run executes one accrual batch.
//
// Returns domain.ErrRunInProgress if another run holds the run lock or a live
// run record exists (another process on the same ledger), and
// domain.ErrAlreadyRanToday when date dedup is enabled and today already ran.
// If the store is unreachable at start the run is aborted and the error returned.
// Per-investment failures are counted and logged; the batch continues.
// If ctx is cancelled mid-batch the remaining investments are left for the next
// run, the run is recorded as aborted and ctx.Err() is returned with the summary.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (*RunSummary, error) {
	unlock, err := e.locker.TryLock(ctx, locks.AccrualRunKey)
	if errors.Is(err, domain.ErrLockNotObtained) {
		return nil, domain.ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take accrual run lock: %w", err)
	}
	defer unlock()

	start := e.now().UTC()
	summary := &RunSummary{
		ID:           uuid.NewString(),
		RunDate:      start.Format("2006-01-02"),
		Trigger:      trigger,
		Status:       RunRunning,
		TotalSettled: decimal.Zero,
		StartedAt:    start,
	}

	log := e.log.With().Str("run_id", summary.ID).Str("trigger", string(trigger)).Logger()

	if err := e.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Ledger unreachable, accrual run aborted")
		e.metrics.ObserveAccrualRun(metrics.AccrualOutcome{Status: string(RunAborted)})
		return nil, fmt.Errorf("accrual run aborted: %w", err)
	}

	staleBefore := start.Add(-e.staleAfter)
	if n, err := e.runs.AbortInterrupted(ctx, staleBefore, start); err != nil {
		log.Warn().Err(err).Msg("Failed to close interrupted runs")
	} else if n > 0 {
		log.Warn().Int64("count", n).Msg("Marked interrupted accrual runs as aborted")
	}

	err = e.runs.Claim(ctx, summary, staleBefore, e.dedup)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		log.Warn().Msg("Another process is running accrual on this ledger")
		return nil, err
	case errors.Is(err, domain.ErrAlreadyRanToday):
		log.Info().Str("run_date", summary.RunDate).Msg("Accrual already completed today, skipping")
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("accrual run aborted: %w", err)
	}

	e.emitter.EmitTyped(events.AccrualRunStarted, moduleName, &events.AccrualRunStartedData{
		RunID:   summary.ID,
		Trigger: string(trigger),
	})

	log.Info().Str("run_date", summary.RunDate).Msg("Starting daily accrual")

	active, err := e.store.ListActiveInvestments(ctx)
	if err != nil {
		e.finish(summary, RunAborted, err, start, log)
		return summary, fmt.Errorf("accrual run aborted: %w", err)
	}

	var runErr error
	lastBeat := start
	for _, inv := range active {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		e.process(ctx, inv, summary, log)
		lastBeat = e.beat(ctx, summary.ID, lastBeat, log)
	}

	if runErr != nil {
		log.Warn().
			Int("processed", summary.Processed).
			Int("remaining", len(active)-summary.Processed).
			Msg("Accrual run cancelled, remaining investments left for the next run")
		e.finish(summary, RunAborted, runErr, start, log)
		return summary, runErr
	}

	e.finish(summary, RunCompleted, nil, start, log)
	return summary, nil
}

// beat refreshes the run heartbeat once per heartbeat interval and returns the
// time of the latest beat
func (e *Engine) beat(ctx context.Context, runID string, last time.Time, log zerolog.Logger) time.Time {
	now := e.now().UTC()
	if now.Sub(last) < e.heartbeat {
		return last
	}
	if err := e.runs.Heartbeat(ctx, runID, now); err != nil {
		log.Warn().Err(err).Msg("Failed to record accrual run heartbeat")
		return last
	}
	return now
}

// process accrues one investment and updates the summary counters
func (e *Engine) process(ctx context.Context, inv domain.Investment, summary *RunSummary, log zerolog.Logger) {
	summary.Processed++

	settled, matured, err := e.accrue(ctx, inv)
	switch {
	case errors.Is(err, domain.ErrConcurrentUpdate):
		summary.Skipped++
		log.Warn().Str("investment_id", inv.ID).Msg("Investment changed by another writer, skipped")
		return
	case err != nil:
		summary.Failed++
		log.Error().Err(err).
			Str("investment_id", inv.ID).
			Str("user_id", inv.UserID).
			Msg("Failed to accrue investment")
		return
	}

	if !matured {
		summary.Advanced++
		return
	}

	summary.Completed++
	summary.TotalSettled = summary.TotalSettled.Add(settled)

	log.Info().
		Str("investment_id", inv.ID).
		Str("user_id", inv.UserID).
		Str("settlement", settled.String()).
		Msg("Investment matured and settled")

	// Post-commit and best-effort: the ledger is already final
	e.emitter.EmitTyped(events.InvestmentCompleted, moduleName, &events.InvestmentCompletedData{
		UserID:       inv.UserID,
		InvestmentID: inv.ID,
		PackageName:  inv.PackageName,
		Capital:      inv.Capital,
		ProfitEarned: settled.Sub(inv.Capital),
		TotalReturn:  inv.TotalReturn,
		Settlement:   settled,
		Duration:     inv.Duration,
	})
}

// accrue applies one tick to inv in a single transaction.
// Only a maturing investment takes the owner's wallet lock.
func (e *Engine) accrue(ctx context.Context, inv domain.Investment) (decimal.Decimal, bool, error) {
	days, profit, matured := inv.Advance()

	status := domain.InvestmentActive
	owner := ""
	if matured {
		status = domain.InvestmentCompleted
		owner = inv.UserID
	}

	settlement := decimal.Zero
	err := e.store.Atomically(ctx, owner, func(tx ledger.Tx) error {
		if err := tx.UpdateInvestment(ctx, inv.ID, inv.DaysCompleted, days, profit, status); err != nil {
			return err
		}
		if !matured {
			return nil
		}

		settlement = inv.SettlementAmount(profit)
		if _, err := tx.CreditWallet(ctx, inv.UserID, settlement, domain.EntrySettlement, inv.ID); err != nil {
			return fmt.Errorf("failed to settle investment %s: %w", inv.ID, err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, false, err
	}
	return settlement, matured, nil
}

// finish records the final state. Recording uses a fresh context so a
// cancelled run is still written as aborted.
func (e *Engine) finish(summary *RunSummary, status RunStatus, runErr error, start time.Time, log zerolog.Logger) {
	finishedAt := e.now().UTC()
	summary.Status = status
	summary.FinishedAt = &finishedAt
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.runs.Finish(ctx, summary); err != nil {
		log.Error().Err(err).Msg("Failed to record accrual run result")
	}

	duration := finishedAt.Sub(start)
	e.metrics.ObserveAccrualRun(metrics.AccrualOutcome{
		Status:    string(status),
		Duration:  duration,
		Advanced:  summary.Advanced,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Settled:   summary.TotalSettled.InexactFloat64(),
	})

	e.emitter.EmitTyped(events.AccrualRunFinished, moduleName, &events.AccrualRunFinishedData{
		RunID:        summary.ID,
		Trigger:      string(summary.Trigger),
		Status:       string(status),
		Processed:    summary.Processed,
		Advanced:     summary.Advanced,
		Completed:    summary.Completed,
		Failed:       summary.Failed,
		Skipped:      summary.Skipped,
		TotalSettled: summary.TotalSettled,
		DurationMs:   duration.Milliseconds(),
	})

	log.Info().
		Str("status", string(status)).
		Int("processed", summary.Processed).
		Int("advanced", summary.Advanced).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("total_settled", summary.TotalSettled.String()).
		Dur("duration", duration).
		Msg("Daily accrual finished")
}
