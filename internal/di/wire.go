package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/domain"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Seed the back-office admin (when configured)
// 5. Register jobs
//
// Nothing runs in the background until Start is called.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	// Step 1: Initialize databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Initialize repositories
	if err := InitializeRepositories(container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	// Step 3: Initialize services
	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 4: Seed admin
	if cfg.AdminSeed.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := container.AccountService.EnsureAdmin(ctx, cfg.AdminSeed.Email, cfg.AdminSeed.Password, cfg.AdminSeed.Name, domain.RoleSuperAdmin)
		cancel()
		if err != nil {
			container.Close()
			return nil, nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	// Step 5: Register jobs
	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	return container, jobs, nil
}

// Start begins background processing: the notification recorder and
// dispatcher, then the scheduler. Pending notifications left by a previous
// process are picked up immediately.
func (c *Container) Start() {
	if c.started {
		return
	}
	c.started = true

	c.Recorder.Start()
	go c.Dispatcher.Run()
	c.Dispatcher.Trigger()
	c.Scheduler.Start()
}

// Stop halts background processing and releases every resource.
// Running jobs see their context cancelled and are waited for.
func (c *Container) Stop() {
	if c.started {
		c.Scheduler.Stop()
		c.Recorder.Stop()
		c.Dispatcher.Stop()
		c.started = false
	}
	c.Close()
}

// Close releases connections without touching background workers.
// It is safe on a partially wired container.
func (c *Container) Close() {
	if c.pubsubSink != nil {
		_ = c.pubsubSink.Close()
		c.pubsubSink = nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
		c.LedgerDB = nil
	}
}
