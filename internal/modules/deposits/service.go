// Package deposits handles wallet funding requests and their approval.
package deposits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

const moduleName = "deposits"

// LedgerStore runs wallet mutations under the owner's wallet lock
type LedgerStore interface {
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
}

// UserDirectory resolves the user snapshot stored on each request
type UserDirectory interface {
	User(ctx context.Context, userID string) (*domain.User, error)
}

// CompanyBank is the account users transfer deposits to
type CompanyBank struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// DefaultCompanyBank is used when no company bank is configured
var DefaultCompanyBank = CompanyBank{
	BankName:      "First Bank of Nigeria",
	AccountNumber: "3012345678",
	AccountName:   "FlexInvest Limited",
}

// Service implements deposit requests and admin decisions
type Service struct {
	repo    *Repository
	store   LedgerStore
	users   UserDirectory
	emitter events.Emitter
	bank    CompanyBank
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a deposit service
func NewService(repo *Repository, store LedgerStore, users UserDirectory, emitter events.Emitter, bank CompanyBank, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if bank.AccountNumber == "" {
		bank = DefaultCompanyBank
	}
	return &Service{
		repo:    repo,
		store:   store,
		users:   users,
		emitter: emitter,
		bank:    bank,
		now:     time.Now,
		log:     log.With().Str("service", "deposits").Logger(),
	}
}

// CompanyBank returns the account deposits are paid into
func (s *Service) CompanyBank() CompanyBank {
	return s.bank
}

// Create records a pending deposit. The wallet is credited only on approval.
func (s *Service) Create(ctx context.Context, userID string, amount decimal.Decimal, proofRef string) (*domain.Deposit, error) {
	if !domain.PositiveAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, fmt.Errorf("%w: proof of payment is required", domain.ErrInvalidInput)
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	deposit := &domain.Deposit{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserEmail: user.Email,
		UserName:  user.FullName,
		Amount:    amount,
		ProofRef:  proofRef,
		Status:    domain.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, deposit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("deposit_id", deposit.ID).
		Str("user_id", userID).
		Str("amount", amount.String()).
		Msg("Deposit requested")

	s.emitter.EmitTyped(events.DepositCreated, moduleName, &events.DepositCreatedData{
		UserID:    userID,
		DepositID: deposit.ID,
		Amount:    amount,
	})

	return deposit, nil
}

// History returns the user's deposits, newest first
func (s *Service) History(ctx context.Context, userID string) ([]domain.Deposit, error) {
	return s.repo.ListByUser(ctx, userID)
}

// List returns deposits filtered by status; empty status returns all
func (s *Service) List(ctx context.Context, status domain.RequestStatus) ([]domain.Deposit, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Decide approves or rejects a pending deposit.
// Approval credits the wallet in the same transaction as the status change.
func (s *Service) Decide(ctx context.Context, id string, decision domain.Decision, note string) (*domain.Deposit, error) {
	if !decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}

	deposit, err := s.repo.Get(ctx, s.repo.ledgerDB, id)
	if err != nil {
		return nil, err
	}
	if deposit.Status != domain.RequestPending {
		return nil, domain.ErrAlreadyProcessed
	}

	var decidedAt time.Time
	err = s.store.Atomically(ctx, deposit.UserID, func(tx ledger.Tx) error {
		decidedAt = tx.Now()
		if err := s.repo.Resolve(ctx, tx.Querier(), id, decision.Status(), note, decidedAt); err != nil {
			return err
		}
		if decision != domain.DecisionApprove {
			return nil
		}
		_, err := tx.CreditWallet(ctx, deposit.UserID, deposit.Amount, domain.EntryDeposit, deposit.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	deposit.Status = decision.Status()
	deposit.AdminNote = note
	deposit.UpdatedAt = decidedAt

	s.log.Info().
		Str("deposit_id", id).
		Str("user_id", deposit.UserID).
		Str("status", string(deposit.Status)).
		Msg("Deposit decided")

	s.emitter.EmitTyped(events.DepositDecided, moduleName, &events.DepositDecidedData{
		UserID:    deposit.UserID,
		DepositID: deposit.ID,
		Amount:    deposit.Amount,
		Status:    string(deposit.Status),
		Note:      note,
	})

	return deposit, nil
}
