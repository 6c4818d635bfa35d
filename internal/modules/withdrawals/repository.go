package withdrawals

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

// Repository persists withdrawal requests in ledger.db
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a withdrawal repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "withdrawals").Logger(),
	}
}

const withdrawalColumns = `SELECT id, user_id, user_email, user_name, amount, bank_name, account_number,
	account_name, status, admin_note, created_at, updated_at FROM withdrawals`

// Insert stores a new withdrawal request with its bank snapshot
func (r *Repository) Insert(ctx context.Context, w *domain.Withdrawal) error {
	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO withdrawals (
			id, user_id, user_email, user_name, amount, bank_name, account_number, account_name,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.UserEmail, w.UserName, w.Amount.String(),
		w.BankName, w.AccountNumber, w.AccountName,
		string(w.Status), w.CreatedAt.Unix(), w.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}
	return nil
}

// Get returns a withdrawal or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, q database.Querier, id string) (*domain.Withdrawal, error) {
	w, err := scanWithdrawal(q.QueryRowContext(ctx, withdrawalColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %s: %w", id, err)
	}
	return w, nil
}

// ListByUser returns a user's withdrawals, newest first
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	return r.query(ctx, withdrawalColumns+` WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// ListByStatus returns withdrawals with status, or all when status is empty
func (r *Repository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error) {
	if status == "" {
		return r.query(ctx, withdrawalColumns+` ORDER BY created_at DESC, id`)
	}
	return r.query(ctx, withdrawalColumns+` WHERE status = ? ORDER BY created_at DESC, id`, string(status))
}

// Resolve moves a pending withdrawal to status. It returns
// domain.ErrAlreadyProcessed when the row is no longer pending.
func (r *Repository) Resolve(ctx context.Context, q database.Querier, id string, status domain.RequestStatus, note string, now time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE withdrawals SET status = ?, admin_note = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), note, now.Unix(), id, string(domain.RequestPending))
	if err != nil {
		return fmt.Errorf("failed to update withdrawal %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update withdrawal %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Withdrawal, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]domain.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWithdrawal(row scanner) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var status string
	var note sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&w.ID, &w.UserID, &w.UserEmail, &w.UserName, &w.Amount,
		&w.BankName, &w.AccountNumber, &w.AccountName,
		&status, &note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	w.Status = domain.RequestStatus(status)
	w.AdminNote = note.String
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	w.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &w, nil
}
