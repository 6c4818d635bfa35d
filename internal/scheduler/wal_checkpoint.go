package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// Checkpointer truncates the write-ahead log
type Checkpointer interface {
	Name() string
	WALCheckpoint(mode string) error
}

// WALCheckpointJob checkpoints and truncates the WAL to keep it from growing
type WALCheckpointJob struct {
	db  Checkpointer
	log zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(db Checkpointer, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes a TRUNCATE checkpoint
func (j *WALCheckpointJob) Run(_ context.Context) error {
	if j.db == nil {
		return nil
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical; SQLite's auto-checkpoint still runs
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		return err
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("WAL checkpoint completed")
	return nil
}
