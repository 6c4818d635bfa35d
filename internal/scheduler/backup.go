package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/reliability"
)

// BackupCreator snapshots the ledger to object storage
type BackupCreator interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	RotateOldBackups(ctx context.Context) (int, error)
}

// BackupJob uploads a snapshot and prunes expired ones
type BackupJob struct {
	backups BackupCreator
	log     zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(backups BackupCreator, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup; rotation failures are logged only
func (j *BackupJob) Run(ctx context.Context) error {
	info, err := j.backups.CreateAndUpload(ctx)
	if err != nil {
		return err
	}

	deleted, err := j.backups.RotateOldBackups(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	j.log.Info().
		Str("archive", info.Filename).
		Int64("size_bytes", info.SizeBytes).
		Int("rotated", deleted).
		Msg("Backup job completed")
	return nil
}
