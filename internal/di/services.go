package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/locks"
	"github.com/flexinvest/platform/internal/metrics"
	"github.com/flexinvest/platform/internal/modules/accounts"
	accountshandlers "github.com/flexinvest/platform/internal/modules/accounts/handlers"
	"github.com/flexinvest/platform/internal/modules/admin"
	adminhandlers "github.com/flexinvest/platform/internal/modules/admin/handlers"
	"github.com/flexinvest/platform/internal/modules/complaints"
	complaintshandlers "github.com/flexinvest/platform/internal/modules/complaints/handlers"
	"github.com/flexinvest/platform/internal/modules/deposits"
	depositshandlers "github.com/flexinvest/platform/internal/modules/deposits/handlers"
	"github.com/flexinvest/platform/internal/modules/investments"
	investmentshandlers "github.com/flexinvest/platform/internal/modules/investments/handlers"
	"github.com/flexinvest/platform/internal/modules/ledger"
	ledgerhandlers "github.com/flexinvest/platform/internal/modules/ledger/handlers"
	"github.com/flexinvest/platform/internal/modules/notifications"
	"github.com/flexinvest/platform/internal/modules/withdrawals"
	withdrawalshandlers "github.com/flexinvest/platform/internal/modules/withdrawals/handlers"
	"github.com/flexinvest/platform/internal/reliability"
)

// InitializeServices creates services, notification delivery and HTTP handlers.
// Order matters: the ledger store comes before anything that moves money, and
// the event manager before anything that emits.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// ==========================================
	// STEP 1: Infrastructure
	// ==========================================

	container.Metrics = metrics.New()
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)
	container.TokenService = auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)

	if container.Redis != nil {
		container.Locker = locks.NewRedisLocker(container.Redis, locks.RedisLockerConfig{
			TTL: cfg.Redis.LockTTL,
		}, log)
	} else {
		container.Locker = locks.NewKeyedMutex()
	}

	// ==========================================
	// STEP 2: Ledger and domain services
	// ==========================================

	container.LedgerStore = ledger.NewStore(container.LedgerDB.Conn(), container.Locker, log)

	container.AccountService = accounts.NewService(
		container.AccountRepo,
		container.LedgerStore,
		container.TokenService,
		log,
	)

	container.InvestmentService = investments.NewService(
		container.LedgerStore,
		container.RunRepo,
		container.EventManager,
		log,
	)

	container.AccrualEngine = investments.NewEngine(
		container.LedgerStore,
		container.RunRepo,
		container.Locker,
		container.EventManager,
		investments.EngineConfig{
			DedupByDate:   cfg.Accrual.DedupByDate,
			StaleRunAfter: cfg.Accrual.StaleRunAfter,
			Metrics:       container.Metrics,
		},
		log,
	)

	container.DepositService = deposits.NewService(
		container.DepositRepo,
		container.LedgerStore,
		container.AccountService,
		container.EventManager,
		deposits.CompanyBank{
			BankName:      cfg.CompanyBank.BankName,
			AccountNumber: cfg.CompanyBank.AccountNumber,
			AccountName:   cfg.CompanyBank.AccountName,
		},
		log,
	)

	container.WithdrawalService = withdrawals.NewService(
		container.WithdrawalRepo,
		container.LedgerStore,
		container.AccountService,
		container.EventManager,
		log,
	)

	container.ComplaintService = complaints.NewService(
		container.ComplaintRepo,
		container.AccountService,
		container.EventManager,
		log,
	)

	container.AdminService = admin.NewService(
		container.AdminRepo,
		container.LedgerStore,
		container.AccountRepo,
		container.EventManager,
		log,
	)

	// ==========================================
	// STEP 3: Notifications
	// ==========================================

	if err := initializeNotifications(container, cfg, log); err != nil {
		return err
	}

	// ==========================================
	// STEP 4: Backups (optional)
	// ==========================================

	if cfg.Backup.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			Endpoint:  cfg.Backup.Endpoint,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.LedgerDB,
			store,
			cfg.DataDir,
			cfg.Backup.RetentionDays,
			config.Version,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Remote backups enabled")
	}

	// ==========================================
	// STEP 5: HTTP handlers
	// ==========================================

	container.AccountHandler = accountshandlers.NewHandler(container.AccountService, log)
	container.WalletHandler = ledgerhandlers.NewHandler(container.LedgerStore, log)
	container.InvestmentHandler = investmentshandlers.NewHandler(
		container.InvestmentService,
		container.AccrualEngine,
		log,
	)
	container.DepositHandler = depositshandlers.NewHandler(container.DepositService, log)
	container.WithdrawalHandler = withdrawalshandlers.NewHandler(container.WithdrawalService, log)
	container.ComplaintHandler = complaintshandlers.NewHandler(container.ComplaintService, log)
	container.AdminHandler = adminhandlers.NewHandler(container.AdminService, log)

	log.Debug().Msg("Services initialized")
	return nil
}

// initializeNotifications builds the sink chain, the dispatcher and the bus recorder
func initializeNotifications(container *Container, cfg *config.Config, log zerolog.Logger) error {
	var sink notifications.Sink = notifications.NewLogSink(log)

	if cfg.Notifications.PubSubEnabled() {
		pubsubSink, err := notifications.NewPubSubSink(
			context.Background(),
			cfg.Notifications.PubSubProjectID,
			cfg.Notifications.PubSubTopic,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize pubsub sink: %w", err)
		}
		container.pubsubSink = pubsubSink
		sink = notifications.MultiSink{pubsubSink, sink}
	}
	container.NotificationSink = sink

	container.Dispatcher = notifications.NewDispatcher(
		container.Outbox,
		sink,
		notifications.DispatcherConfig{
			RatePerSec:  cfg.Notifications.RatePerSec,
			MaxAttempts: cfg.Notifications.MaxAttempts,
			BatchSize:   cfg.Notifications.BatchSize,
			Metrics:     container.Metrics,
		},
		log,
	)

	container.Recorder = notifications.NewRecorder(
		container.EventBus,
		container.Outbox,
		container.Dispatcher.Trigger,
		log,
	)

	return nil
}
