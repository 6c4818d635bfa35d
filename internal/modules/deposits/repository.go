package deposits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/database"
	"github.com/flexinvest/platform/internal/domain"
)

// Repository persists deposit requests in ledger.db
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a deposit repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "deposits").Logger(),
	}
}

const depositColumns = `SELECT id, user_id, user_email, user_name, amount, proof_ref, status,
	admin_note, created_at, updated_at FROM deposits`

// Insert stores a new deposit request
func (r *Repository) Insert(ctx context.Context, d *domain.Deposit) error {
	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, user_email, user_name, amount, proof_ref, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.UserEmail, d.UserName, d.Amount.String(), d.ProofRef,
		string(d.Status), d.CreatedAt.Unix(), d.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", err)
	}
	return nil
}

// Get returns a deposit or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, q database.Querier, id string) (*domain.Deposit, error) {
	d, err := scanDeposit(q.QueryRowContext(ctx, depositColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit %s: %w", id, err)
	}
	return d, nil
}

// ListByUser returns a user's deposits, newest first
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error) {
	return r.query(ctx, depositColumns+` WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// ListByStatus returns deposits with status, or all when status is empty
func (r *Repository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Deposit, error) {
	if status == "" {
		return r.query(ctx, depositColumns+` ORDER BY created_at DESC, id`)
	}
	return r.query(ctx, depositColumns+` WHERE status = ? ORDER BY created_at DESC, id`, string(status))
}

// Resolve moves a pending deposit to status. It returns
// domain.ErrAlreadyProcessed when the row is no longer pending.
func (r *Repository) Resolve(ctx context.Context, q database.Querier, id string, status domain.RequestStatus, note string, now time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE deposits SET status = ?, admin_note = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), note, now.Unix(), id, string(domain.RequestPending))
	if err != nil {
		return fmt.Errorf("failed to update deposit %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update deposit %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Deposit, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	deposits := make([]domain.Deposit, 0)
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDeposit(row scanner) (*domain.Deposit, error) {
	var d domain.Deposit
	var status string
	var note sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&d.ID, &d.UserID, &d.UserEmail, &d.UserName, &d.Amount, &d.ProofRef,
		&status, &note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d.Status = domain.RequestStatus(status)
	d.AdminNote = note.String
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &d, nil
}
