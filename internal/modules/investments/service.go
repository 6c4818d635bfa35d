// Package investments provides the package catalog, subscriptions and the
// daily profit accrual engine.
package investments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

// InvestmentStore is the ledger surface used by subscriptions and queries
type InvestmentStore interface {
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
	ListInvestmentsByUser(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error)
}

// RunLister lists accrual runs for the admin API
type RunLister interface {
	List(ctx context.Context, limit int) ([]RunSummary, error)
}

// Service handles subscriptions and investment queries
type Service struct {
	store   InvestmentStore
	runs    RunLister
	emitter events.Emitter
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates an investment service
func NewService(store InvestmentStore, runs RunLister, emitter events.Emitter, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		store:   store,
		runs:    runs,
		emitter: emitter,
		now:     time.Now,
		log:     log.With().Str("service", "investments").Logger(),
	}
}

// SetClock overrides the time source (tests)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Packages returns the catalog
func (s *Service) Packages() []domain.Package {
	return Packages()
}

// Subscribe buys packageID for userID.
// The wallet debit and the investment insert commit together under the
// owner's wallet lock, so an insufficient balance leaves nothing behind.
func (s *Service) Subscribe(ctx context.Context, userID, packageID string) (*domain.Investment, error) {
	pkg, err := FindPackage(packageID)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	inv := &domain.Investment{
		ID:            uuid.NewString(),
		UserID:        userID,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		Capital:       pkg.Capital,
		DailyProfit:   pkg.DailyProfit,
		Duration:      pkg.Duration,
		TotalReturn:   pkg.TotalReturn,
		DaysCompleted: 0,
		ProfitEarned:  decimal.Zero,
		Status:        domain.InvestmentActive,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, pkg.Duration),
		CreatedAt:     start,
	}

	err = s.store.Atomically(ctx, userID, func(tx ledger.Tx) error {
		if _, err := tx.DebitWallet(ctx, userID, pkg.Capital, domain.EntrySubscription, inv.ID); err != nil {
			return err
		}
		return tx.InsertInvestment(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("investment_id", inv.ID).
		Str("package_id", pkg.ID).
		Str("capital", pkg.Capital.String()).
		Msg("Investment created")

	s.emitter.EmitTyped(events.InvestmentCreated, moduleName, &events.InvestmentCreatedData{
		UserID:       userID,
		InvestmentID: inv.ID,
		PackageID:    pkg.ID,
		PackageName:  pkg.Name,
		Capital:      pkg.Capital,
		DailyProfit:  pkg.DailyProfit,
		TotalReturn:  pkg.TotalReturn,
		Duration:     pkg.Duration,
	})

	return inv, nil
}

// Active returns the user's active investments
func (s *Service) Active(ctx context.Context, userID string) ([]domain.Investment, error) {
	return s.store.ListInvestmentsByUser(ctx, userID, domain.InvestmentActive)
}

// History returns every investment of the user, newest first
func (s *Service) History(ctx context.Context, userID string) ([]domain.Investment, error) {
	return s.store.ListInvestmentsByUser(ctx, userID, "")
}

// Runs returns recent accrual runs
func (s *Service) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	return s.runs.List(ctx, limit)
}
