package investments

import (
	"context"
	"testing"
	"time"

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

func newTestService(t *testing.T) (*Service, *ledger.Store, *testutil.RecordingEmitter) {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	store := ledger.NewStore(db.Conn(), locks.NewKeyedMutex(), zerolog.Nop())
	emitter := testutil.NewRecordingEmitter()
	svc := NewService(store, NewRunRepository(db.Conn(), zerolog.Nop()), emitter, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) })
	return svc, store, emitter
}

func TestCatalog(t *testing.T) {
	expected := []struct {
		id, name              string
		capital, daily, total int64
	}{
		{"pkg_1", "Starter", 10000, 600, 25200},
		{"pkg_2", "Bronze", 20000, 1000, 42000},
		{"pkg_3", "Silver", 40000, 1700, 71400},
		{"pkg_4", "Gold", 60000, 2600, 109200},
		{"pkg_5", "Platinum", 100000, 4200, 176400},
		{"pkg_6", "Diamond", 150000, 6000, 252000},
		{"pkg_7", "Elite", 200000, 7200, 302400},
		{"pkg_8", "Premium", 300000, 10000, 420000},
	}

	packages := Packages()
	require.Len(t, packages, len(expected))

	for i, tc := range expected {
		t.Run(tc.id, func(t *testing.T) {
			p := packages[i]
			assert.Equal(t, tc.id, p.ID)
			assert.Equal(t, tc.name, p.Name)
			assert.Equal(t, 42, p.Duration)
			assert.True(t, p.Capital.Equal(decimal.NewFromInt(tc.capital)))
			assert.True(t, p.DailyProfit.Equal(decimal.NewFromInt(tc.daily)))
			assert.True(t, p.TotalReturn.Equal(decimal.NewFromInt(tc.total)))
			// The advertised total is the profit over the term, capital excluded
			assert.True(t, p.TotalReturn.Equal(p.DailyProfit.Mul(decimal.NewFromInt(int64(p.Duration)))))
		})
	}
}

func TestPackagesReturnsCopy(t *testing.T) {
	p := Packages()
	p[0].Name = "Changed"
	assert.Equal(t, "Starter", Packages()[0].Name)
}

func TestFindPackage(t *testing.T) {
	p, err := FindPackage("pkg_4")
	require.NoError(t, err)
	assert.Equal(t, "Gold", p.Name)

	_, err = FindPackage("pkg_99")
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestSubscribe_DebitsCapital(t *testing.T) {
	svc, store, emitter := newTestService(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "ada@example.com", decimal.NewFromInt(15000))

	inv, err := svc.Subscribe(ctx, user.ID, "pkg_1")
	require.NoError(t, err)

	assert.Equal(t, domain.InvestmentActive, inv.Status)
	assert.Equal(t, 0, inv.DaysCompleted)
	assert.True(t, inv.ProfitEarned.IsZero())
	assert.Equal(t, "Starter", inv.PackageName)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), inv.EndDate)

	assert.True(t, testutil.WalletBalance(t, store.DB(), user.ID).Equal(decimal.NewFromInt(5000)))

	active, err := svc.Active(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, inv.ID, active[0].ID)

	entries, err := store.ListEntries(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntrySubscription, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(-10000)))

	created := emitter.OfType(events.InvestmentCreated)
	require.Len(t, created, 1)
	assert.Equal(t, inv.ID, created[0].Data.(*events.InvestmentCreatedData).InvestmentID)
}

func TestSubscribe_InsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, store, emitter := newTestService(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "bob@example.com", decimal.NewFromInt(9999))

	_, err := svc.Subscribe(ctx, user.ID, "pkg_1")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.True(t, testutil.WalletBalance(t, store.DB(), user.ID).Equal(decimal.NewFromInt(9999)))
	history, err := svc.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, emitter.Events())
}

func TestSubscribe_ExactBalance(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := testutil.InsertUser(t, store.DB(), "c@example.com", decimal.NewFromInt(20000))

	_, err := svc.Subscribe(context.Background(), user.ID, "pkg_2")
	require.NoError(t, err)
	assert.True(t, testutil.WalletBalance(t, store.DB(), user.ID).IsZero())
}

func TestSubscribe_Errors(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "d@example.com", decimal.NewFromInt(1000000))

	_, err := svc.Subscribe(ctx, user.ID, "pkg_unknown")
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)

	_, err = svc.Subscribe(ctx, "no-such-user", "pkg_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryIncludesCompleted(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.InsertUser(t, store.DB(), "e@example.com", decimal.Zero)

	done := testutil.StarterInvestment(user.ID)
	done.Status = domain.InvestmentCompleted
	done.DaysCompleted = 42
	testutil.InsertInvestment(t, store.DB(), done)
	testutil.InsertInvestment(t, store.DB(), testutil.StarterInvestment(user.ID))

	active, err := svc.Active(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	history, err := svc.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
