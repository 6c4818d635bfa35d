package complaints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/domain"
)

// Repository persists support complaints in ledger.db
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a complaint repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "complaints").Logger(),
	}
}

const complaintColumns = `SELECT id, user_id, user_email, user_name, subject, message, status,
	admin_response, created_at, updated_at FROM complaints`

// Insert stores a new complaint
func (r *Repository) Insert(ctx context.Context, c *domain.Complaint) error {
	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO complaints (id, user_id, user_email, user_name, subject, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.UserEmail, c.UserName, c.Subject, c.Message,
		string(c.Status), c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert complaint: %w", err)
	}
	return nil
}

// Get returns a complaint or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, id string) (*domain.Complaint, error) {
	c, err := scanComplaint(r.ledgerDB.QueryRowContext(ctx, complaintColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint %s: %w", id, err)
	}
	return c, nil
}

// ListByUser returns a user's complaints, newest first
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Complaint, error) {
	return r.query(ctx, complaintColumns+` WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// ListByStatus returns complaints with status, or all when status is empty
func (r *Repository) ListByStatus(ctx context.Context, status domain.ComplaintStatus) ([]domain.Complaint, error) {
	if status == "" {
		return r.query(ctx, complaintColumns+` ORDER BY created_at DESC, id`)
	}
	return r.query(ctx, complaintColumns+` WHERE status = ? ORDER BY created_at DESC, id`, string(status))
}

// Update sets status and the admin response
func (r *Repository) Update(ctx context.Context, id string, status domain.ComplaintStatus, response string, now time.Time) error {
	result, err := r.ledgerDB.ExecContext(ctx, `
		UPDATE complaints SET status = ?, admin_response = ?, updated_at = ? WHERE id = ?`,
		string(status), response, now.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update complaint %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update complaint %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Complaint, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()

	complaints := make([]domain.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	return complaints, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComplaint(row scanner) (*domain.Complaint, error) {
	var c domain.Complaint
	var status string
	var response sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&c.ID, &c.UserID, &c.UserEmail, &c.UserName, &c.Subject, &c.Message,
		&status, &response, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Status = domain.ComplaintStatus(status)
	c.AdminResponse = response.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}
