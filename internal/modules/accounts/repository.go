package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/database"
	"github.com/flexinvest/platform/internal/domain"
)

// Repository handles users, admins and bank accounts in ledger.db.
// Write methods take a Querier so they can join a ledger transaction.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates an accounts repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "accounts").Logger(),
	}
}

const userColumns = `SELECT id, email, password_hash, full_name, phone, is_verified, created_at FROM users`

// EmailTaken reports whether a user already uses email
func (r *Repository) EmailTaken(ctx context.Context, q database.Querier, email string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// CreateUser inserts a user row
func (r *Repository) CreateUser(ctx context.Context, q database.Querier, u *domain.User) error {
	verified := 0
	if u.IsVerified {
		verified = 1
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, verified, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by id or domain.ErrNotFound
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, r.ledgerDB, userColumns+` WHERE id = ?`, id)
}

// GetUserByEmail returns a user by email or domain.ErrNotFound
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, r.ledgerDB, userColumns+` WHERE email = ?`, email)
}

func (r *Repository) getUser(ctx context.Context, q database.Querier, query string, arg string) (*domain.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user, newest first
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, userColumns+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var phone sql.NullString
	var verified int
	var createdAt int64

	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &phone, &verified, &createdAt); err != nil {
		return nil, err
	}

	u.Phone = phone.String
	u.IsVerified = verified == 1
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// CreateAdmin inserts an admin row
func (r *Repository) CreateAdmin(ctx context.Context, a *domain.Admin) error {
	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, name, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.Name, string(a.Role), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

// GetAdminByEmail returns an admin or domain.ErrNotFound
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var a domain.Admin
	var role string
	var createdAt int64

	err := r.ledgerDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM admins WHERE email = ?`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	a.Role = domain.Role(role)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

// UpsertBankAccount stores the single payout account of a user
func (r *Repository) UpsertBankAccount(ctx context.Context, b *domain.BankAccount) error {
	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO bank_accounts (id, user_id, bank_name, account_number, account_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			bank_name = excluded.bank_name,
			account_number = excluded.account_number,
			account_name = excluded.account_name,
			updated_at = excluded.updated_at`,
		uuid.NewString(), b.UserID, b.BankName, b.AccountNumber, b.AccountName,
		b.CreatedAt.Unix(), b.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save bank account: %w", err)
	}
	return nil
}

// GetBankAccount returns the user's bank account or domain.ErrNotFound
func (r *Repository) GetBankAccount(ctx context.Context, userID string) (*domain.BankAccount, error) {
	var b domain.BankAccount
	var createdAt, updatedAt int64

	err := r.ledgerDB.QueryRowContext(ctx, `
		SELECT id, user_id, bank_name, account_number, account_name, created_at, updated_at
		FROM bank_accounts WHERE user_id = ?`, userID,
	).Scan(&b.ID, &b.UserID, &b.BankName, &b.AccountNumber, &b.AccountName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}

	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	b.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &b, nil
}
