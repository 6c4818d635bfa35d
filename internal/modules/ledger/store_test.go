package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/locks"
	testutil "github.com/flexinvest/platform/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)
	return NewStore(db.Conn(), locks.NewKeyedMutex(), zerolog.Nop())
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestStore_CreditAndDebitJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "ada@example.com", dec(1000))

	err := store.Atomically(ctx, user.ID, func(tx Tx) error {
		balance, err := tx.CreditWallet(ctx, user.ID, dec(500), domain.EntryDeposit, "dep-1")
		require.NoError(t, err)
		assert.True(t, balance.Equal(dec(1500)))

		balance, err = tx.DebitWallet(ctx, user.ID, dec(200), domain.EntryWithdrawal, "wd-1")
		require.NoError(t, err)
		assert.True(t, balance.Equal(dec(1300)))
		return nil
	})
	require.NoError(t, err)

	wallet, err := store.GetWallet(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec(1300)))

	entries, err := store.ListEntries(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byKind := map[domain.EntryKind]domain.WalletEntry{}
	for _, e := range entries {
		byKind[e.Kind] = e
	}
	assert.True(t, byKind[domain.EntryDeposit].Amount.Equal(dec(500)))
	assert.Equal(t, "dep-1", byKind[domain.EntryDeposit].ReferenceID)
	assert.True(t, byKind[domain.EntryWithdrawal].Amount.Equal(dec(-200)))
	assert.True(t, byKind[domain.EntryWithdrawal].BalanceAfter.Equal(dec(1300)))
}

func TestStore_DebitInsufficientFundsRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "bob@example.com", dec(100))

	err := store.Atomically(ctx, user.ID, func(tx Tx) error {
		if _, err := tx.CreditWallet(ctx, user.ID, dec(50), domain.EntryAdminCredit, ""); err != nil {
			return err
		}
		_, err := tx.DebitWallet(ctx, user.ID, dec(1000), domain.EntrySubscription, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The credit before the failing debit is rolled back too
	assert.True(t, testutil.WalletBalance(t, store.DB(), user.ID).Equal(dec(100)))

	entries, err := store.ListEntries(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_InvalidAmounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "c@example.com", dec(100))

	err := store.Atomically(ctx, user.ID, func(tx Tx) error {
		_, err := tx.CreditWallet(ctx, user.ID, decimal.Zero, domain.EntryDeposit, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = store.Atomically(ctx, user.ID, func(tx Tx) error {
		_, err := tx.DebitWallet(ctx, user.ID, dec(-5), domain.EntryWithdrawal, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestStore_MissingWallet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetWallet(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Atomically(ctx, "nobody", func(tx Tx) error {
		_, err := tx.CreditWallet(ctx, "nobody", dec(1), domain.EntryDeposit, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateInvestmentCompareAndSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "d@example.com", decimal.Zero)
	inv := testutil.InsertInvestment(t, store.DB(), testutil.StarterInvestment(user.ID))

	err := store.Atomically(ctx, user.ID, func(tx Tx) error {
		return tx.UpdateInvestment(ctx, inv.ID, 0, 1, dec(600), domain.InvestmentActive)
	})
	require.NoError(t, err)

	// Stale expectation: someone already advanced the row
	err = store.Atomically(ctx, user.ID, func(tx Tx) error {
		return tx.UpdateInvestment(ctx, inv.ID, 0, 1, dec(600), domain.InvestmentActive)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	got, err := store.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DaysCompleted)
	assert.True(t, got.ProfitEarned.Equal(dec(600)))

	// Completed rows can no longer be updated
	err = store.Atomically(ctx, user.ID, func(tx Tx) error {
		return tx.UpdateInvestment(ctx, inv.ID, 1, 2, dec(1200), domain.InvestmentCompleted)
	})
	require.NoError(t, err)
	err = store.Atomically(ctx, user.ID, func(tx Tx) error {
		return tx.UpdateInvestment(ctx, inv.ID, 2, 3, dec(1800), domain.InvestmentActive)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
}

func TestStore_InsertAndListInvestments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "e@example.com", decimal.Zero)
	store.SetClock(func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) })

	inv := testutil.StarterInvestment(user.ID)
	inv.StartDate = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inv.EndDate = inv.StartDate.AddDate(0, 0, 42)

	require.NoError(t, store.Atomically(ctx, user.ID, func(tx Tx) error {
		return tx.InsertInvestment(ctx, &inv)
	}))
	require.NotEmpty(t, inv.ID)

	active, err := store.ListActiveInvestments(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, inv.ID, active[0].ID)
	assert.True(t, active[0].Capital.Equal(dec(10000)))
	assert.True(t, inv.EndDate.Equal(active[0].EndDate))

	mine, err := store.ListInvestmentsByUser(ctx, user.ID, domain.InvestmentCompleted)
	require.NoError(t, err)
	assert.Empty(t, mine)

	mine, err = store.ListInvestmentsByUser(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = store.GetInvestment(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ConcurrentCreditsAreSerialised(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "f@example.com", decimal.Zero)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomically(ctx, user.ID, func(tx Tx) error {
				_, err := tx.CreditWallet(ctx, user.ID, dec(10), domain.EntryAdminCredit, "")
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, testutil.WalletBalance(t, store.DB(), user.ID).Equal(dec(200)))
}

func TestStore_AtomicallyLockFailure(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	km := locks.NewKeyedMutex()
	store := NewStore(db.Conn(), km, zerolog.Nop())

	unlock, err := km.Lock(context.Background(), locks.WalletKey("u1"))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err = store.Atomically(ctx, "u1", func(tx Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, called)
}

func TestStore_Balances(t *testing.T) {
	store := newTestStore(t)
	a := testutil.InsertUser(t, store.DB(), "g@example.com", dec(5))
	b := testutil.InsertUser(t, store.DB(), "h@example.com", dec(7))

	balances, err := store.Balances(context.Background())
	require.NoError(t, err)
	assert.True(t, balances[a.ID].Equal(dec(5)))
	assert.True(t, balances[b.ID].Equal(dec(7)))
}
