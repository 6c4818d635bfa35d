package withdrawals

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/locks"
	"github.com/flexinvest/platform/internal/modules/ledger"
	testutil "github.com/flexinvest/platform/internal/testing"
)

type fakeAccounts struct {
	users map[string]*domain.User
	banks map[string]*domain.BankAccount
}

func (f *fakeAccounts) User(_ context.Context, userID string) (*domain.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAccounts) BankAccount(_ context.Context, userID string) (*domain.BankAccount, error) {
	if b, ok := f.banks[userID]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

type fixture struct {
	svc      *Service
	store    *ledger.Store
	accounts *fakeAccounts
	emitter  *testutil.RecordingEmitter
	userID   string
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	store := ledger.NewStore(db.Conn(), locks.NewKeyedMutex(), log)
	user := testutil.InsertUser(t, db.Conn(), "ada@example.com", decimal.NewFromInt(balance))
	accounts := &fakeAccounts{
		users: map[string]*domain.User{user.ID: {ID: user.ID, Email: user.Email, FullName: user.FullName}},
		banks: map[string]*domain.BankAccount{user.ID: {
			UserID: user.ID, BankName: "GTBank", AccountNumber: "0123456789", AccountName: "Ada Lovelace",
		}},
	}
	emitter := testutil.NewRecordingEmitter()

	return &fixture{
		svc:      NewService(NewRepository(db.Conn(), log), store, accounts, emitter, log),
		store:    store,
		accounts: accounts,
		emitter:  emitter,
		userID:   user.ID,
	}
}

func TestCreate_SnapshotsBankAccount(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	withdrawal, err := f.svc.Create(ctx, f.userID, decimal.NewFromInt(4000))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, withdrawal.Status)
	assert.Equal(t, "GTBank", withdrawal.BankName)

	// A later change to the saved account does not alter the request
	f.accounts.banks[f.userID].BankName = "Access Bank"
	history, err := f.svc.History(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "GTBank", history[0].BankName)

	// No debit until approval
	assert.True(t, testutil.WalletBalance(t, f.store.DB(), f.userID).Equal(decimal.NewFromInt(10000)))
	assert.Len(t, f.emitter.OfType(events.WithdrawalCreated), 1)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.userID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(ctx, f.userID, decimal.NewFromInt(1001))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	delete(f.accounts.banks, f.userID)
	_, err = f.svc.Create(ctx, f.userID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrBankAccountRequired)

	_, err = f.svc.Create(ctx, "missing", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.emitter.Events())
}

func TestDecide_ApproveDebitsWallet(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	withdrawal, err := f.svc.Create(ctx, f.userID, decimal.NewFromInt(4000))
	require.NoError(t, err)

	decided, err := f.svc.Decide(ctx, withdrawal.ID, domain.DecisionApprove, "paid")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, decided.Status)
	assert.True(t, testutil.WalletBalance(t, f.store.DB(), f.userID).Equal(decimal.NewFromInt(6000)))

	entries, err := f.store.ListEntries(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryWithdrawal, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(-4000)))

	_, err = f.svc.Decide(ctx, withdrawal.ID, domain.DecisionApprove, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.True(t, testutil.WalletBalance(t, f.store.DB(), f.userID).Equal(decimal.NewFromInt(6000)))
}

func TestDecide_ApprovalRechecksBalance(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.userID, decimal.NewFromInt(7000))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.userID, decimal.NewFromInt(7000))
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, first.ID, domain.DecisionApprove, "")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, second.ID, domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	pending, err := f.svc.List(ctx, domain.RequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.True(t, testutil.WalletBalance(t, f.store.DB(), f.userID).Equal(decimal.NewFromInt(3000)))

	rejected, err := f.svc.Decide(ctx, second.ID, domain.DecisionReject, "insufficient balance")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)
	assert.True(t, testutil.WalletBalance(t, f.store.DB(), f.userID).Equal(decimal.NewFromInt(3000)))
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, "missing", domain.DecisionApprove, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Decide(ctx, "missing", domain.Decision("approve"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
}
