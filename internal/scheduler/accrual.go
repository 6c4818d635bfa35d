package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/investments"
)

// AccrualRunner runs the daily accrual batch
type AccrualRunner interface {
	RunDailyAccrual(ctx context.Context) (*investments.RunSummary, error)
}

// DailyAccrualJob advances every active investment by one day
type DailyAccrualJob struct {
	runner AccrualRunner
	log    zerolog.Logger
}

// NewDailyAccrualJob creates a new DailyAccrualJob
func NewDailyAccrualJob(runner AccrualRunner, log zerolog.Logger) *DailyAccrualJob {
	return &DailyAccrualJob{
		runner: runner,
		log:    log.With().Str("job", "daily_accrual").Logger(),
	}
}

// Name returns the job name
func (j *DailyAccrualJob) Name() string {
	return "daily_accrual"
}

// Run executes one accrual batch.
// A concurrent run or a date-deduplicated run is not a failure.
func (j *DailyAccrualJob) Run(ctx context.Context) error {
	summary, err := j.runner.RunDailyAccrual(ctx)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		j.log.Warn().Msg("Accrual run already in progress, skipping this tick")
		return nil
	case errors.Is(err, domain.ErrAlreadyRanToday):
		j.log.Info().Msg("Accrual already ran today, skipping")
		return nil
	case err != nil:
		// Next tick retries; the process keeps running
		return err
	}

	if summary.Failed > 0 {
		j.log.Warn().Int("failed", summary.Failed).Str("run_id", summary.ID).Msg("Accrual finished with failures")
	}
	return nil
}
