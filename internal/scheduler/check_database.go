package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// HealthChecker runs a full integrity check
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// CheckDatabaseJob verifies integrity of the ledger database
type CheckDatabaseJob struct {
	db  HealthChecker
	log zerolog.Logger
}

// NewCheckDatabaseJob creates a new CheckDatabaseJob
func NewCheckDatabaseJob(db HealthChecker, log zerolog.Logger) *CheckDatabaseJob {
	return &CheckDatabaseJob{
		db:  db,
		log: log.With().Str("job", "check_database").Logger(),
	}
}

// Name returns the job name
func (j *CheckDatabaseJob) Name() string {
	return "check_database"
}

// Run executes PRAGMA integrity_check through the database health check
func (j *CheckDatabaseJob) Run(ctx context.Context) error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	if err := j.db.HealthCheck(ctx); err != nil {
		// Ledger corruption cannot be auto-recovered; surface it loudly
		j.log.Error().
			Err(err).
			Str("database", j.db.Name()).
			Msg("Database integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	j.log.Info().Str("database", j.db.Name()).Msg("Database integrity check passed")
	return nil
}
