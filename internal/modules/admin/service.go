// Package admin provides the back-office dashboard, user overview, manual
// wallet credits and the investment report.
package admin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

const moduleName = "admin"

// LedgerStore is the ledger surface used by the back office
type LedgerStore interface {
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	ListAllInvestments(ctx context.Context) ([]domain.Investment, error)
}

// UserLister lists every registered user
type UserLister interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// UserSummary is a user row in the admin user list
type UserSummary struct {
	domain.User
	Balance decimal.Decimal `json:"balance"`
}

// CreditResult is the outcome of a manual credit
type CreditResult struct {
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ReferenceID  string          `json:"reference_id"`
}

// Service implements back-office operations
type Service struct {
	repo    *Repository
	store   LedgerStore
	users   UserLister
	emitter events.Emitter
	log     zerolog.Logger
}

// NewService creates an admin service
func NewService(repo *Repository, store LedgerStore, users UserLister, emitter events.Emitter, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		repo:    repo,
		store:   store,
		users:   users,
		emitter: emitter,
		log:     log.With().Str("service", "admin").Logger(),
	}
}

// Dashboard returns the platform counters
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return s.repo.Dashboard(ctx)
}

// Users returns every user with their wallet balance
func (s *Service) Users(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	balances, err := s.store.Balances(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		balance, ok := balances[u.ID]
		if !ok {
			balance = decimal.Zero
		}
		out = append(out, UserSummary{User: u, Balance: balance})
	}
	return out, nil
}

// CreditWallet adds amount to the user's wallet under the wallet lock.
// Returns domain.ErrNotFound when the user has no wallet.
func (s *Service) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, note string) (*CreditResult, error) {
	if !domain.PositiveAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}

	result := &CreditResult{
		UserID:      userID,
		Amount:      amount,
		ReferenceID: "credit-" + uuid.NewString(),
	}

	err := s.store.Atomically(ctx, userID, func(tx ledger.Tx) error {
		balance, err := tx.CreditWallet(ctx, userID, amount, domain.EntryAdminCredit, result.ReferenceID)
		if err != nil {
			return err
		}
		result.BalanceAfter = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("amount", amount.String()).
		Str("reference_id", result.ReferenceID).
		Msg("Wallet credited by admin")

	s.emitter.EmitTyped(events.WalletCredited, moduleName, &events.WalletCreditedData{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: result.BalanceAfter,
		Note:         strings.TrimSpace(note),
	})

	return result, nil
}

const (
	investmentsSheet = "Investments"
	summarySheet     = "Summary"
)

var investmentHeaders = []string{
	"ID", "User ID", "Package", "Capital", "Daily Profit", "Duration",
	"Days Completed", "Profit Earned", "Total Return", "Status", "Start Date", "End Date",
}

// ExportInvestments writes an XLSX workbook with every investment and the
// dashboard counters to w
func (s *Service) ExportInvestments(ctx context.Context, w io.Writer) error {
	investments, err := s.store.ListAllInvestments(ctx)
	if err != nil {
		return err
	}
	dashboard, err := s.repo.Dashboard(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet instead of leaving an empty Sheet1
	if err := f.SetSheetName("Sheet1", investmentsSheet); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}

	if err := f.SetSheetRow(investmentsSheet, "A1", &investmentHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, inv := range investments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			inv.ID,
			inv.UserID,
			inv.PackageName,
			inv.Capital.InexactFloat64(),
			inv.DailyProfit.InexactFloat64(),
			inv.Duration,
			inv.DaysCompleted,
			inv.ProfitEarned.InexactFloat64(),
			inv.TotalReturn.InexactFloat64(),
			string(inv.Status),
			inv.StartDate.Format(time.DateOnly),
			inv.EndDate.Format(time.DateOnly),
		}
		if err := f.SetSheetRow(investmentsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write investment %s: %w", inv.ID, err)
		}
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Total users", dashboard.TotalUsers},
		{"Active investments", dashboard.ActiveInvestments},
		{"Pending deposits", dashboard.PendingDeposits},
		{"Pending withdrawals", dashboard.PendingWithdrawals},
		{"Open complaints", dashboard.OpenComplaints},
		{"Total deposited", dashboard.TotalDeposited.InexactFloat64()},
		{"Total withdrawn", dashboard.TotalWithdrawn.InexactFloat64()},
		{"Generated at", time.Now().UTC().Format(time.RFC3339)},
	}
	for i := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &summary[i]); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.log.Info().Int("investments", len(investments)).Msg("Exported investment report")
	return nil
}
