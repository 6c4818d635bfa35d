// Command accrue runs one daily accrual batch against the configured ledger
// and exits. Notifications raised by the batch are written to the outbox and
// delivered by the server's dispatcher.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/di"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/investments"
	"github.com/flexinvest/platform/pkg/logger"
)

func main() {
	dedup := flag.Bool("dedup", false, "skip the run if a completed run already exists for today (UTC)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dedup {
		cfg.Accrual.DedupByDate = true
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true})

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	container.Recorder.Start()
	summary, runErr := container.AccrualEngine.Run(ctx, investments.TriggerCLI)
	container.Recorder.Stop()
	stop()

	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	}

	container.Close()

	switch {
	case runErr == nil:
		return
	case errors.Is(runErr, domain.ErrAlreadyRanToday):
		log.Info().Msg("Accrual already ran today, nothing to do")
	case errors.Is(runErr, domain.ErrRunInProgress):
		log.Warn().Msg("Another accrual run is in progress")
		os.Exit(2)
	default:
		log.Error().Err(runErr).Msg("Accrual run failed")
		os.Exit(1)
	}
}
