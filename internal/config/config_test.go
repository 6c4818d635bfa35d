package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0 0 0 * * *", cfg.Accrual.Schedule)
	assert.False(t, cfg.Accrual.DedupByDate)
	assert.Equal(t, 10*time.Minute, cfg.Accrual.StaleRunAfter)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "First Bank of Nigeria", cfg.CompanyBank.BankName)
	assert.Equal(t, "3012345678", cfg.CompanyBank.AccountNumber)
	assert.Equal(t, "FlexInvest Limited", cfg.CompanyBank.AccountName)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Backup.Enabled())
	assert.False(t, cfg.Notifications.PubSubEnabled())
	assert.Contains(t, cfg.LedgerPath(), "ledger.db")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORT", "9100")
	t.Setenv("ACCRUAL_DEDUP_BY_DATE", "true")
	t.Setenv("ACCRUAL_STALE_RUN_AFTER", "3m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBSUB_PROJECT_ID", "flexinvest")
	t.Setenv("PUBSUB_TOPIC", "notifications")
	t.Setenv("CORS_ORIGINS", "https://app.flexinvest.com, https://admin.flexinvest.com")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.Accrual.DedupByDate)
	assert.Equal(t, 3*time.Minute, cfg.Accrual.StaleRunAfter)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Notifications.PubSubEnabled())
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"https://app.flexinvest.com", "https://admin.flexinvest.com"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestLoad_DevModeProvidesSecret(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          8001,
			JWTSecret:     "0123456789abcdef0123456789abcdef",
			Accrual:       AccrualConfig{Schedule: "0 0 0 * * *"},
			Notifications: NotificationConfig{MaxAttempts: 5, RatePerSec: 5},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32"},
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"empty schedule", func(c *Config) { c.Accrual.Schedule = "" }, "ACCRUAL_SCHEDULE"},
		{"zero attempts", func(c *Config) { c.Notifications.MaxAttempts = 0 }, "NOTIFY_MAX_ATTEMPTS"},
		{"admin email without password", func(c *Config) { c.AdminSeed.Email = "ops@flexinvest.com" }, "ADMIN_EMAIL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
