package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/modules/accounts"
	"github.com/flexinvest/platform/internal/modules/admin"
	"github.com/flexinvest/platform/internal/modules/complaints"
	"github.com/flexinvest/platform/internal/modules/deposits"
	"github.com/flexinvest/platform/internal/modules/investments"
	"github.com/flexinvest/platform/internal/modules/notifications"
	"github.com/flexinvest/platform/internal/modules/withdrawals"
)

// InitializeRepositories creates all repositories on the ledger database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil {
		return fmt.Errorf("container has no ledger database")
	}

	conn := container.LedgerDB.Conn()

	container.AccountRepo = accounts.NewRepository(conn, log)
	container.DepositRepo = deposits.NewRepository(conn, log)
	container.WithdrawalRepo = withdrawals.NewRepository(conn, log)
	container.ComplaintRepo = complaints.NewRepository(conn, log)
	container.AdminRepo = admin.NewRepository(conn, log)
	container.RunRepo = investments.NewRunRepository(conn, log)
	container.Outbox = notifications.NewOutbox(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
