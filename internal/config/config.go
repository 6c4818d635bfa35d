// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is reported by /health and stamped into backup metadata
const Version = "1.0.0"

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding ledger.db and backup staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins     []string
	RateLimitPerMin int

	Accrual       AccrualConfig
	Redis         RedisConfig
	Notifications NotificationConfig
	Backup        BackupConfig
	AdminSeed     AdminSeedConfig
	CompanyBank   CompanyBankConfig
}

// AccrualConfig controls the daily accrual job
type AccrualConfig struct {
	Schedule      string        // cron expression with seconds field, evaluated in UTC
	DedupByDate   bool          // refuse a second completed run on the same UTC date
	StaleRunAfter time.Duration // a running record silent this long belongs to a dead process
}

// RedisConfig enables distributed wallet locks when URL is set
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

// Enabled reports whether Redis locking is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// NotificationConfig controls outbox delivery
type NotificationConfig struct {
	PubSubProjectID string
	PubSubTopic     string
	RatePerSec      int
	MaxAttempts     int
	BatchSize       int
	SweepSchedule   string
}

// PubSubEnabled reports whether the Pub/Sub sink is configured
func (c NotificationConfig) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubTopic != ""
}

// BackupConfig holds S3-compatible (S3 or R2) backup settings
type BackupConfig struct {
	Schedule      string
	Bucket        string
	Region        string
	Endpoint      string // custom endpoint for R2/MinIO; empty means AWS
	AccessKey     string
	SecretKey     string
	RetentionDays int
}

// Enabled reports whether remote backups are configured
func (c BackupConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// AdminSeedConfig seeds a back-office account at startup
type AdminSeedConfig struct {
	Email    string
	Password string
	Name     string
}

// CompanyBankConfig is the account users pay deposits into
type CompanyBankConfig struct {
	BankName      string
	AccountNumber string
	AccountName   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTL:          getEnvAsDuration("JWT_TTL", 24*time.Hour),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 120),
		Accrual: AccrualConfig{
			Schedule:      getEnv("ACCRUAL_SCHEDULE", "0 0 0 * * *"), // midnight UTC
			DedupByDate:   getEnvAsBool("ACCRUAL_DEDUP_BY_DATE", false),
			StaleRunAfter: getEnvAsDuration("ACCRUAL_STALE_RUN_AFTER", 10*time.Minute),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			LockTTL: getEnvAsDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Notifications: NotificationConfig{
			PubSubProjectID: getEnv("PUBSUB_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", "")),
			PubSubTopic:     getEnv("PUBSUB_TOPIC", ""),
			RatePerSec:      getEnvAsInt("NOTIFY_RATE_PER_SEC", 5),
			MaxAttempts:     getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),
			BatchSize:       getEnvAsInt("NOTIFY_BATCH_SIZE", 50),
			SweepSchedule:   getEnv("NOTIFY_SWEEP_SCHEDULE", "0 * * * * *"),
		},
		Backup: BackupConfig{
			Schedule:      getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"),
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "auto"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			AccessKey:     getEnv("S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("S3_SECRET_KEY", ""),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		AdminSeed: AdminSeedConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Admin"),
		},
		CompanyBank: CompanyBankConfig{
			BankName:      getEnv("COMPANY_BANK_NAME", "First Bank of Nigeria"),
			AccountNumber: getEnv("COMPANY_BANK_ACCOUNT", "3012345678"),
			AccountName:   getEnv("COMPANY_BANK_ACCOUNT_NAME", "FlexInvest Limited"),
		},
	}

	if cfg.JWTSecret == "" && cfg.DevMode {
		cfg.JWTSecret = "dev-only-secret-do-not-use-in-production"
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.DevMode && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if c.Accrual.Schedule == "" {
		return fmt.Errorf("ACCRUAL_SCHEDULE must not be empty")
	}

	if c.Notifications.MaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Notifications.RatePerSec < 1 {
		return fmt.Errorf("NOTIFY_RATE_PER_SEC must be at least 1")
	}

	if (c.AdminSeed.Email == "") != (c.AdminSeed.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return nil
}

// LedgerPath returns the path of the ledger database file
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
