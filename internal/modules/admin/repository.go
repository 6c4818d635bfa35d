package admin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
)

// Repository runs the read-only aggregate queries behind the dashboard
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates an admin repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "admin").Logger(),
	}
}

// Dashboard holds platform-wide counters
type Dashboard struct {
	TotalUsers         int             `json:"total_users"`
	PendingDeposits    int             `json:"pending_deposits"`
	PendingWithdrawals int             `json:"pending_withdrawals"`
	OpenComplaints     int             `json:"open_complaints"`
	ActiveInvestments  int             `json:"active_investments"`
	TotalDeposited     decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn     decimal.Decimal `json:"total_withdrawn"`
}

// Dashboard computes the counters
func (r *Repository) Dashboard(ctx context.Context) (*Dashboard, error) {
	var err error
	d := &Dashboard{}
	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&d.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
		{&d.PendingDeposits, `SELECT COUNT(*) FROM deposits WHERE status = ?`, []interface{}{string(domain.RequestPending)}},
		{&d.PendingWithdrawals, `SELECT COUNT(*) FROM withdrawals WHERE status = ?`, []interface{}{string(domain.RequestPending)}},
		{&d.OpenComplaints, `SELECT COUNT(*) FROM complaints WHERE status = ?`, []interface{}{string(domain.ComplaintOpen)}},
		{&d.ActiveInvestments, `SELECT COUNT(*) FROM investments WHERE status = ?`, []interface{}{string(domain.InvestmentActive)}},
	}
	for _, c := range counts {
		if err := r.ledgerDB.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count for dashboard: %w", err)
		}
	}

	// Amounts are TEXT decimals; SQL SUM would go through floating point
	if d.TotalDeposited, err = r.sumAmounts(ctx, `SELECT amount FROM deposits WHERE status = ?`); err != nil {
		return nil, err
	}
	if d.TotalWithdrawn, err = r.sumAmounts(ctx, `SELECT amount FROM withdrawals WHERE status = ?`); err != nil {
		return nil, err
	}

	return d, nil
}

func (r *Repository) sumAmounts(ctx context.Context, query string) (decimal.Decimal, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, query, string(domain.RequestApproved))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
