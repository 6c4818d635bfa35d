// Package di wires the platform's databases, services, handlers and jobs.
//
// Container is the single source of truth for service instances. The HTTP
// server and the CLI tools read what they need from it.
package di

import (
	"github.com/redis/go-redis/v9"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/database"
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
	"github.com/flexinvest/platform/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Storage
	LedgerDB *database.DB
	Redis    *redis.Client // nil unless REDIS_URL is set

	// Infrastructure
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Metrics
	Locker       locks.Locker
	TokenService *auth.TokenService

	// Repositories
	AccountRepo    *accounts.Repository
	DepositRepo    *deposits.Repository
	WithdrawalRepo *withdrawals.Repository
	ComplaintRepo  *complaints.Repository
	AdminRepo      *admin.Repository
	RunRepo        *investments.RunRepository
	Outbox         *notifications.Outbox

	// Services
	LedgerStore       *ledger.Store
	AccountService    *accounts.Service
	InvestmentService *investments.Service
	AccrualEngine     *investments.Engine
	DepositService    *deposits.Service
	WithdrawalService *withdrawals.Service
	ComplaintService  *complaints.Service
	AdminService      *admin.Service
	BackupService     *reliability.BackupService // nil unless S3 backups are configured

	// Notifications
	NotificationSink notifications.Sink
	Dispatcher       *notifications.Dispatcher
	Recorder         *notifications.Recorder
	pubsubSink       *notifications.PubSubSink

	// Handlers
	AccountHandler    *accountshandlers.Handler
	WalletHandler     *ledgerhandlers.Handler
	InvestmentHandler *investmentshandlers.Handler
	DepositHandler    *depositshandlers.Handler
	WithdrawalHandler *withdrawalshandlers.Handler
	ComplaintHandler  *complaintshandlers.Handler
	AdminHandler      *adminhandlers.Handler

	Scheduler *scheduler.Scheduler

	started bool
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	DailyAccrual      scheduler.Job
	CheckDatabase     scheduler.Job
	WALCheckpoint     scheduler.Job
	NotificationSweep scheduler.Job
	Backup            scheduler.Job // nil unless S3 backups are configured
}
