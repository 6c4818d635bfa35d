package di

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/locks"
	"github.com/flexinvest/platform/internal/modules/investments"
	testutil "github.com/flexinvest/platform/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:   t.TempDir(),
		Port:      8001,
		DevMode:   true,
		JWTSecret: "test-secret-that-is-long-enough-for-hs256",
		JWTTTL:    time.Hour,
		Accrual: config.AccrualConfig{
			Schedule: "0 0 0 * * *",
		},
		Notifications: config.NotificationConfig{
			RatePerSec:    100,
			MaxAttempts:   3,
			BatchSize:     10,
			SweepSchedule: "0 * * * * *",
		},
		Backup: config.BackupConfig{
			Schedule: "0 30 2 * * *",
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(container.Stop)

	// Verify container is fully populated
	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.LedgerStore)
	assert.NotNil(t, container.AccrualEngine)
	assert.NotNil(t, container.InvestmentService)
	assert.NotNil(t, container.DepositService)
	assert.NotNil(t, container.WithdrawalService)
	assert.NotNil(t, container.ComplaintService)
	assert.NotNil(t, container.AdminService)
	assert.NotNil(t, container.Dispatcher)
	assert.NotNil(t, container.Recorder)
	assert.NotNil(t, container.AdminHandler)
	assert.NotNil(t, container.Scheduler)

	// Optional integrations stay off without configuration
	assert.Nil(t, container.Redis)
	assert.Nil(t, container.BackupService)
	assert.IsType(t, &locks.KeyedMutex{}, container.Locker)
	assert.Equal(t, "log", container.NotificationSink.Name())

	assert.NotNil(t, jobs.DailyAccrual)
	assert.NotNil(t, jobs.CheckDatabase)
	assert.NotNil(t, jobs.WALCheckpoint)
	assert.NotNil(t, jobs.NotificationSweep)
	assert.Nil(t, jobs.Backup)
	assert.Len(t, container.Scheduler.Entries(), 4)
}

func TestWire_SeedsAdmin(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminSeed = config.AdminSeedConfig{
		Email:    "ops@flexinvest.test",
		Password: "correct-horse",
		Name:     "Ops",
	}

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Stop)

	session, err := container.AccountService.AuthenticateAdmin(context.Background(), "ops@flexinvest.test", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, session.Token)
	assert.NotNil(t, session.Admin)
}

func TestWire_InvalidScheduleFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Accrual.Schedule = "not a schedule"

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, container)
	assert.Nil(t, jobs)
	assert.Contains(t, err.Error(), "daily_accrual")
}

func TestContainer_NotificationsFlowAfterStart(t *testing.T) {
	cfg := testConfig(t)

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Stop)

	container.Start()
	container.Start() // second call is a no-op

	user := testutil.InsertUser(t, container.LedgerDB.Conn(), "ada@example.com", decimal.NewFromInt(50000))

	_, err = container.InvestmentService.Subscribe(context.Background(), user.ID, "pkg_1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var sent int
		err := container.LedgerDB.Conn().QueryRow(
			"SELECT COUNT(*) FROM notification_outbox WHERE status = 'sent' AND user_id = ?", user.ID,
		).Scan(&sent)
		return err == nil && sent == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestContainer_ManualAccrualRun(t *testing.T) {
	cfg := testConfig(t)

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Stop)

	db := container.LedgerDB.Conn()
	user := testutil.InsertUser(t, db, "grace@example.com", decimal.Zero)
	inv := testutil.StarterInvestment(user.ID)
	inv.DaysCompleted = inv.Duration - 1
	inv.ProfitEarned = decimal.NewFromInt(24600)
	testutil.InsertInvestment(t, db, inv)

	summary, err := container.AccrualEngine.Run(context.Background(), investments.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
	assert.True(t, testutil.WalletBalance(t, db, user.ID).Equal(inv.Capital.Add(inv.TotalReturn)))
}

func TestContainer_StopWithoutStart(t *testing.T) {
	container, _, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	container.Stop()
	container.Stop()
	assert.Nil(t, container.LedgerDB)
}
