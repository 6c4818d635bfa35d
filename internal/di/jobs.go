package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/scheduler"
)

const (
	checkDatabaseSchedule = "0 15 3 * * *" // daily, after the backup window
	walCheckpointSchedule = "0 5 * * * *"  // hourly
)

type scheduledJob struct {
	spec string
	job  scheduler.Job
}

// RegisterJobs creates the scheduler and registers every cron job.
// Returns JobInstances for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(container.Metrics, log)
	instances := &JobInstances{
		DailyAccrual:      scheduler.NewDailyAccrualJob(container.AccrualEngine, log),
		CheckDatabase:     scheduler.NewCheckDatabaseJob(container.LedgerDB, log),
		WALCheckpoint:     scheduler.NewWALCheckpointJob(container.LedgerDB, log),
		NotificationSweep: scheduler.NewNotificationSweepJob(container.Dispatcher),
	}

	schedules := []scheduledJob{
		{cfg.Accrual.Schedule, instances.DailyAccrual},
		{checkDatabaseSchedule, instances.CheckDatabase},
		{walCheckpointSchedule, instances.WALCheckpoint},
		{cfg.Notifications.SweepSchedule, instances.NotificationSweep},
	}

	if container.BackupService != nil {
		instances.Backup = scheduler.NewBackupJob(container.BackupService, log)
		schedules = append(schedules, scheduledJob{cfg.Backup.Schedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := container.Scheduler.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Scheduler jobs registered")
	return instances, nil
}
