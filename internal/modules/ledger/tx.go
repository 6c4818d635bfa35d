package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/database"
	"github.com/flexinvest/platform/internal/domain"
)

// Tx is the set of writes available inside Store.Atomically.
// All calls share one SQL transaction.
type Tx interface {
	// Querier exposes the transaction to module repositories
	Querier() database.Querier
	// Now is the transaction timestamp
	Now() time.Time

	CreateWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	Wallet(ctx context.Context, userID string) (*domain.Wallet, error)
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, kind domain.EntryKind, referenceID string) (decimal.Decimal, error)
	DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, kind domain.EntryKind, referenceID string) (decimal.Decimal, error)

	InsertInvestment(ctx context.Context, inv *domain.Investment) error
	UpdateInvestment(ctx context.Context, id string, expectedDays, days int, profit decimal.Decimal, status domain.InvestmentStatus) error
}

type txn struct {
	tx  *sql.Tx
	now time.Time
}

func (t *txn) Querier() database.Querier { return t.tx }

func (t *txn) Now() time.Time { return t.now }

// CreateWallet inserts a zero-balance wallet for userID
func (t *txn) CreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	w := &domain.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: t.now,
		UpdatedAt: t.now,
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO wallets (id, user_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Balance.String(), t.now.Unix(), t.now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for %s: %w", userID, err)
	}
	return w, nil
}

// Wallet reads the wallet inside the transaction
func (t *txn) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return getWallet(ctx, t.tx, userID)
}

// CreditWallet adds amount to the balance and journals it.
// Returns the balance after the credit.
func (t *txn) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, kind domain.EntryKind, referenceID string) (decimal.Decimal, error) {
	if !domain.PositiveAmount(amount) {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	w, err := t.Wallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := w.Balance.Add(amount)
	if err := t.writeBalance(ctx, userID, balance, amount, kind, referenceID); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// DebitWallet subtracts amount, refusing to go below zero.
// Returns the balance after the debit.
func (t *txn) DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, kind domain.EntryKind, referenceID string) (decimal.Decimal, error) {
	if !domain.PositiveAmount(amount) {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	w, err := t.Wallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if w.Balance.LessThan(amount) {
		return decimal.Zero, domain.ErrInsufficientFunds
	}

	balance := w.Balance.Sub(amount)
	if err := t.writeBalance(ctx, userID, balance, amount.Neg(), kind, referenceID); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (t *txn) writeBalance(ctx context.Context, userID string, balance, delta decimal.Decimal, kind domain.EntryKind, referenceID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE user_id = ?`,
		balance.String(), t.now.Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to update wallet for %s: %w", userID, err)
	}

	var ref interface{}
	if referenceID != "" {
		ref = referenceID
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (id, user_id, kind, amount, balance_after, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, string(kind), delta.String(), balance.String(), ref, t.now.Unix())
	if err != nil {
		return fmt.Errorf("failed to journal %s for %s: %w", kind, userID, err)
	}
	return nil
}

// InsertInvestment stores a new investment. ID and timestamps are filled in when empty.
func (t *txn) InsertInvestment(ctx context.Context, inv *domain.Investment) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = t.now
	}
	inv.UpdatedAt = inv.CreatedAt

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO investments (
			id, user_id, package_id, package_name, capital, daily_profit, duration,
			total_return, days_completed, profit_earned, status, start_date, end_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.PackageID, inv.PackageName,
		inv.Capital.String(), inv.DailyProfit.String(), inv.Duration,
		inv.TotalReturn.String(), inv.DaysCompleted, inv.ProfitEarned.String(), string(inv.Status),
		inv.StartDate.Unix(), inv.EndDate.Unix(), inv.CreatedAt.Unix(), inv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	return nil
}

// UpdateInvestment writes the new counters with a compare-and-swap on
// (status = active, days_completed = expectedDays). If another writer already
// advanced or settled the row, domain.ErrConcurrentUpdate is returned and
// nothing is written.
func (t *txn) UpdateInvestment(ctx context.Context, id string, expectedDays, days int, profit decimal.Decimal, status domain.InvestmentStatus) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE investments
		SET days_completed = ?, profit_earned = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND days_completed = ?`,
		days, profit.String(), string(status), t.now.Unix(),
		id, string(domain.InvestmentActive), expectedDays)
	if err != nil {
		return fmt.Errorf("failed to update investment %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
