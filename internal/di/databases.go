package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/database"
	"github.com/flexinvest/platform/internal/locks"
)

// InitializeDatabases opens ledger.db, applies its schema and connects Redis
// when configured
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// ledger.db - users, wallets, investments, requests, runs and the notification outbox
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger, // Maximum safety for money-bearing tables
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}

	if err := ledgerDB.Migrate(); err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to migrate ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	log.Info().Str("path", ledgerDB.Path()).Msg("Ledger database initialized")

	if cfg.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rdb, err := locks.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			ledgerDB.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		container.Redis = rdb
		log.Info().Msg("Redis connected, wallet locks are distributed")
	}

	return container, nil
}
