package investments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
)

// Trigger identifies what started an accrual run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerCLI      Trigger = "cli"
)

// RunStatus is the state of an accrual run record
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// RunSummary is the outcome of one accrual run, persisted in accrual_runs
type RunSummary struct {
	ID           string          `json:"id"`
	RunDate      string          `json:"run_date"` // UTC date, YYYY-MM-DD
	Trigger      Trigger         `json:"trigger"`
	Status       RunStatus       `json:"status"`
	Processed    int             `json:"processed"`
	Advanced     int             `json:"advanced"`
	Completed    int             `json:"completed"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	TotalSettled decimal.Decimal `json:"total_settled"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	HeartbeatAt  *time.Time      `json:"heartbeat_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// RunRepository persists accrual run records in ledger.db
type RunRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRunRepository creates a run repository
func NewRunRepository(ledgerDB *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "accrual_runs").Logger(),
	}
}

// Claim inserts run in status running unless another run is live.
//
// A running record whose heartbeat is at or after liveSince belongs to a live
// run, in this process or any other sharing ledger.db, and makes Claim return
// domain.ErrRunInProgress. With dedupByDate set, a completed run on
// run.RunDate makes it return domain.ErrAlreadyRanToday. The check and the
// insert are one statement, so two processes cannot both claim.
func (r *RunRepository) Claim(ctx context.Context, run *RunSummary, liveSince time.Time, dedupByDate bool) error {
	dedup := 0
	if dedupByDate {
		dedup = 1
	}

	result, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO accrual_runs (id, run_date, trigger, status, total_settled, started_at, heartbeat_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM accrual_runs
			WHERE status = ? AND COALESCE(heartbeat_at, started_at) >= ?
		)
		AND NOT (? = 1 AND EXISTS (
			SELECT 1 FROM accrual_runs WHERE run_date = ? AND status = ?
		))`,
		run.ID, run.RunDate, string(run.Trigger), string(run.Status),
		run.TotalSettled.String(), run.StartedAt.Unix(), run.StartedAt.Unix(),
		string(RunRunning), liveSince.Unix(),
		dedup, run.RunDate, string(RunCompleted))
	if err != nil {
		return fmt.Errorf("failed to record accrual run start: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record accrual run start: %w", err)
	}
	if n == 1 {
		run.HeartbeatAt = &run.StartedAt
		return nil
	}

	live, err := r.hasLiveRun(ctx, liveSince)
	if err != nil {
		return err
	}
	if live {
		return domain.ErrRunInProgress
	}
	return domain.ErrAlreadyRanToday
}

// Heartbeat marks a running run as alive at the given time
func (r *RunRepository) Heartbeat(ctx context.Context, id string, at time.Time) error {
	_, err := r.ledgerDB.ExecContext(ctx,
		`UPDATE accrual_runs SET heartbeat_at = ? WHERE id = ? AND status = ?`,
		at.Unix(), id, string(RunRunning))
	if err != nil {
		return fmt.Errorf("failed to record accrual run heartbeat: %w", err)
	}
	return nil
}

func (r *RunRepository) hasLiveRun(ctx context.Context, liveSince time.Time) (bool, error) {
	var count int
	err := r.ledgerDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accrual_runs WHERE status = ? AND COALESCE(heartbeat_at, started_at) >= ?`,
		string(RunRunning), liveSince.Unix(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check live accrual runs: %w", err)
	}
	return count > 0, nil
}

// Finish writes the final counters and status
func (r *RunRepository) Finish(ctx context.Context, run *RunSummary) error {
	var finishedAt interface{}
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.Unix()
	}
	var errMsg interface{}
	if run.Error != "" {
		errMsg = run.Error
	}

	_, err := r.ledgerDB.ExecContext(ctx, `
		UPDATE accrual_runs
		SET status = ?, processed = ?, advanced = ?, completed = ?, failed = ?, skipped = ?,
		    total_settled = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status), run.Processed, run.Advanced, run.Completed, run.Failed, run.Skipped,
		run.TotalSettled.String(), errMsg, finishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to record accrual run finish: %w", err)
	}
	return nil
}

// AbortInterrupted marks runs left in status running by a dead process as
// aborted. Only records whose last heartbeat is before staleBefore are touched;
// a live run in another process keeps beating and is left alone.
func (r *RunRepository) AbortInterrupted(ctx context.Context, staleBefore, now time.Time) (int64, error) {
	result, err := r.ledgerDB.ExecContext(ctx, `
		UPDATE accrual_runs SET status = ?, error = ?, finished_at = ?
		WHERE status = ? AND COALESCE(heartbeat_at, started_at) < ?`,
		string(RunAborted), "interrupted before completion", now.Unix(),
		string(RunRunning), staleBefore.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to abort interrupted runs: %w", err)
	}
	return result.RowsAffected()
}

// Get returns one run or domain.ErrNotFound
func (r *RunRepository) Get(ctx context.Context, id string) (*RunSummary, error) {
	row := r.ledgerDB.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accrual run %s: %w", id, err)
	}
	return run, nil
}

// List returns the newest runs first
func (r *RunRepository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.ledgerDB.QueryContext(ctx, runColumns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accrual run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accrual runs: %w", err)
	}
	return runs, nil
}

const runColumns = `
	SELECT id, run_date, trigger, status, processed, advanced, completed, failed, skipped,
	       total_settled, error, started_at, heartbeat_at, finished_at
	FROM accrual_runs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunSummary, error) {
	var (
		run             RunSummary
		trigger, status string
		errMsg          sql.NullString
		startedAt       int64
		heartbeatAt     sql.NullInt64
		finishedAt      sql.NullInt64
	)

	err := row.Scan(&run.ID, &run.RunDate, &trigger, &status,
		&run.Processed, &run.Advanced, &run.Completed, &run.Failed, &run.Skipped,
		&run.TotalSettled, &errMsg, &startedAt, &heartbeatAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Trigger = Trigger(trigger)
	run.Status = RunStatus(status)
	run.Error = errMsg.String
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if heartbeatAt.Valid {
		t := time.Unix(heartbeatAt.Int64, 0).UTC()
		run.HeartbeatAt = &t
	}
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}
