// Package ledger owns wallet balances, the wallet journal and investment rows
// stored in ledger.db. Every balance change goes through Store.Atomically,
// which holds the owner's wallet lock for the duration of one SQL transaction.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/database"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/locks"
)

// Store is the ledger repository
type Store struct {
	ledgerDB *sql.DB      // ledger.db
	locker   locks.Locker // per-wallet mutual exclusion
	now      func() time.Time
	log      zerolog.Logger
}

// NewStore creates a ledger store.
//
// Parameters:
//   - ledgerDB: Database connection to ledger.db
//   - locker: Locker used for wallet:<user_id> keys
//   - log: Structured logger
func NewStore(ledgerDB *sql.DB, locker locks.Locker, log zerolog.Logger) *Store {
	return &Store{
		ledgerDB: ledgerDB,
		locker:   locker,
		now:      time.Now,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// SetClock overrides the timestamp source (tests)
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DB returns the underlying connection for read-only repositories
func (s *Store) DB() *sql.DB {
	return s.ledgerDB
}

// Ping verifies the store is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ledgerDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger unreachable: %w", err)
	}
	return nil
}

// Atomically runs fn inside one transaction while holding the wallet lock of ownerID.
// An empty ownerID runs the transaction without taking a wallet lock.
// If fn returns an error nothing it wrote is persisted.
func (s *Store) Atomically(ctx context.Context, ownerID string, fn func(tx Tx) error) error {
	if ownerID != "" {
		unlock, err := s.locker.Lock(ctx, locks.WalletKey(ownerID))
		if err != nil {
			return fmt.Errorf("failed to lock wallet %s: %w", ownerID, err)
		}
		defer unlock()
	}

	return database.WithTransactionContext(ctx, s.ledgerDB, func(sqlTx *sql.Tx) error {
		return fn(&txn{tx: sqlTx, now: s.now().UTC()})
	})
}

// GetWallet returns the wallet for userID or domain.ErrNotFound
func (s *Store) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return getWallet(ctx, s.ledgerDB, userID)
}

// ListActiveInvestments returns every investment in status active
func (s *Store) ListActiveInvestments(ctx context.Context) ([]domain.Investment, error) {
	return s.queryInvestments(ctx, investmentColumns+` FROM investments WHERE status = ? ORDER BY created_at`,
		domain.InvestmentActive)
}

// ListInvestmentsByUser returns a user's investments, newest first.
// An empty status returns every status.
func (s *Store) ListInvestmentsByUser(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error) {
	if status == "" {
		return s.queryInvestments(ctx, investmentColumns+` FROM investments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	}
	return s.queryInvestments(ctx, investmentColumns+` FROM investments WHERE user_id = ? AND status = ? ORDER BY created_at DESC`,
		userID, status)
}

// ListAllInvestments returns every investment, newest first (reports)
func (s *Store) ListAllInvestments(ctx context.Context) ([]domain.Investment, error) {
	return s.queryInvestments(ctx, investmentColumns+` FROM investments ORDER BY created_at DESC`)
}

// GetInvestment returns one investment or domain.ErrNotFound
func (s *Store) GetInvestment(ctx context.Context, id string) (*domain.Investment, error) {
	row := s.ledgerDB.QueryRowContext(ctx, investmentColumns+` FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %s: %w", id, err)
	}
	return inv, nil
}

// ListEntries returns the newest journal entries for userID
func (s *Store) ListEntries(ctx context.Context, userID string, limit int) ([]domain.WalletEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.ledgerDB.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, balance_after, reference_id, created_at
		FROM wallet_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WalletEntry, 0)
	for rows.Next() {
		var (
			e         domain.WalletEntry
			kind      string
			ref       sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.BalanceAfter, &ref, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		e.ReferenceID = ref.String
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet entries: %w", err)
	}
	return entries, nil
}

// Balances returns every wallet balance keyed by user id
func (s *Store) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.ledgerDB.QueryContext(ctx, `SELECT user_id, balance FROM wallets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			userID  string
			balance decimal.Decimal
		)
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan wallet balance: %w", err)
		}
		balances[userID] = balance
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet balances: %w", err)
	}
	return balances, nil
}

func (s *Store) queryInvestments(ctx context.Context, query string, args ...interface{}) ([]domain.Investment, error) {
	rows, err := s.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	investments := make([]domain.Investment, 0)
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}
	return investments, nil
}

const investmentColumns = `
	SELECT id, user_id, package_id, package_name, capital, daily_profit, duration,
	       total_return, days_completed, profit_earned, status, start_date, end_date,
	       created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestment(row scanner) (*domain.Investment, error) {
	var (
		inv                                      domain.Investment
		status                                   string
		startDate, endDate, createdAt, updatedAt int64
	)

	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.PackageID, &inv.PackageName,
		&inv.Capital, &inv.DailyProfit, &inv.Duration, &inv.TotalReturn,
		&inv.DaysCompleted, &inv.ProfitEarned, &status,
		&startDate, &endDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvestmentStatus(status)
	inv.StartDate = time.Unix(startDate, 0).UTC()
	inv.EndDate = time.Unix(endDate, 0).UTC()
	inv.CreatedAt = time.Unix(createdAt, 0).UTC()
	inv.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &inv, nil
}

func getWallet(ctx context.Context, q database.Querier, userID string) (*domain.Wallet, error) {
	var (
		w                    domain.Wallet
		createdAt, updatedAt int64
	)

	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`, userID,
	).Scan(&w.ID, &w.UserID, &w.Balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for %s: %w", userID, err)
	}

	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	w.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &w, nil
}
