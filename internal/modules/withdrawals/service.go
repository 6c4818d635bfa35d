// Package withdrawals handles payout requests and their approval.
package withdrawals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

const moduleName = "withdrawals"

// LedgerStore is the wallet surface used by withdrawals
type LedgerStore interface {
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
}

// AccountDirectory resolves the user and payout account snapshotted on a request
type AccountDirectory interface {
	User(ctx context.Context, userID string) (*domain.User, error)
	BankAccount(ctx context.Context, userID string) (*domain.BankAccount, error)
}

// Service implements withdrawal requests and admin decisions
type Service struct {
	repo     *Repository
	store    LedgerStore
	accounts AccountDirectory
	emitter  events.Emitter
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a withdrawal service
func NewService(repo *Repository, store LedgerStore, accounts AccountDirectory, emitter events.Emitter, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		repo:     repo,
		store:    store,
		accounts: accounts,
		emitter:  emitter,
		now:      time.Now,
		log:      log.With().Str("service", "withdrawals").Logger(),
	}
}

// Create records a pending withdrawal.
// The balance is checked now but only debited on approval, where it is checked again.
func (s *Service) Create(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Withdrawal, error) {
	if !domain.PositiveAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}

	user, err := s.accounts.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	bank, err := s.accounts.BankAccount(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrBankAccountRequired
	}
	if err != nil {
		return nil, err
	}

	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}

	now := s.now().UTC()
	withdrawal := &domain.Withdrawal{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		UserEmail:     user.Email,
		UserName:      user.FullName,
		Amount:        amount,
		BankName:      bank.BankName,
		AccountNumber: bank.AccountNumber,
		AccountName:   bank.AccountName,
		Status:        domain.RequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, withdrawal); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID).
		Str("user_id", userID).
		Str("amount", amount.String()).
		Msg("Withdrawal requested")

	s.emitter.EmitTyped(events.WithdrawalCreated, moduleName, &events.WithdrawalCreatedData{
		UserID:       userID,
		WithdrawalID: withdrawal.ID,
		Amount:       amount,
	})

	return withdrawal, nil
}

// History returns the user's withdrawals, newest first
func (s *Service) History(ctx context.Context, userID string) ([]domain.Withdrawal, error) {
	return s.repo.ListByUser(ctx, userID)
}

// List returns withdrawals filtered by status; empty status returns all
func (s *Service) List(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Decide approves or rejects a pending withdrawal.
// Approval debits the wallet in the same transaction as the status change and
// fails with domain.ErrInsufficientFunds, leaving the request pending, when the
// balance no longer covers the amount.
func (s *Service) Decide(ctx context.Context, id string, decision domain.Decision, note string) (*domain.Withdrawal, error) {
	if !decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}

	withdrawal, err := s.repo.Get(ctx, s.repo.ledgerDB, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != domain.RequestPending {
		return nil, domain.ErrAlreadyProcessed
	}

	var decidedAt time.Time
	err = s.store.Atomically(ctx, withdrawal.UserID, func(tx ledger.Tx) error {
		decidedAt = tx.Now()
		if err := s.repo.Resolve(ctx, tx.Querier(), id, decision.Status(), note, decidedAt); err != nil {
			return err
		}
		if decision != domain.DecisionApprove {
			return nil
		}
		_, err := tx.DebitWallet(ctx, withdrawal.UserID, withdrawal.Amount, domain.EntryWithdrawal, withdrawal.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.log.Warn().
				Str("withdrawal_id", id).
				Str("user_id", withdrawal.UserID).
				Msg("Withdrawal approval refused, balance below amount")
		}
		return nil, err
	}

	withdrawal.Status = decision.Status()
	withdrawal.AdminNote = note
	withdrawal.UpdatedAt = decidedAt

	s.log.Info().
		Str("withdrawal_id", id).
		Str("user_id", withdrawal.UserID).
		Str("status", string(withdrawal.Status)).
		Msg("Withdrawal decided")

	s.emitter.EmitTyped(events.WithdrawalDecided, moduleName, &events.WithdrawalDecidedData{
		UserID:       withdrawal.UserID,
		WithdrawalID: withdrawal.ID,
		Amount:       withdrawal.Amount,
		Status:       string(withdrawal.Status),
		Note:         note,
	})

	return withdrawal, nil
}
