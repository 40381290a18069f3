// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the cache database (always absolute)
	LogLevel string
	LogFile  string // Empty disables file logging
	Port     int
	DevMode  bool

	YahooBaseURL   string
	LookbackMonths int // Monthly closes fetched per series; returns are one fewer
	CacheSize      int // In-memory series cache entries
	BasketFile     string

	WarmSchedule    string // cron spec (with seconds) for the basket warm-up
	CleanupSchedule string // cron spec (with seconds) for cache cleanup
	RotateSchedule  string // cron spec (with seconds) for archive rotation

	Archive ArchiveConfig
}

// ArchiveConfig holds the S3-compatible (Cloudflare R2) report archive settings.
type ArchiveConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionDays   int // 0 keeps reports forever
}

// Enabled reports whether every credential needed to archive is present.
func (a ArchiveConfig) Enabled() bool {
	return a.AccountID != "" && a.AccessKeyID != "" && a.SecretAccessKey != "" && a.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("RBSA_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		Port:            getEnvAsInt("RBSA_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		YahooBaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		LookbackMonths:  getEnvAsInt("RBSA_LOOKBACK_MONTHS", 37),
		CacheSize:       getEnvAsInt("RBSA_CACHE_SIZE", 256),
		BasketFile:      getEnv("RBSA_BASKET_FILE", ""),
		WarmSchedule:    getEnv("RBSA_WARM_SCHEDULE", "0 0 6 1 * *"),
		CleanupSchedule: getEnv("RBSA_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		RotateSchedule:  getEnv("RBSA_ROTATE_SCHEDULE", "0 0 4 * * 0"),
		Archive: ArchiveConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
			RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 365),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	// Two returns are the minimum for a sample covariance.
	if c.LookbackMonths < 3 {
		return fmt.Errorf("lookback must be at least 3 months, got %d", c.LookbackMonths)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	if c.Archive.RetentionDays < 0 {
		return fmt.Errorf("archive retention cannot be negative, got %d", c.Archive.RetentionDays)
	}
	return nil
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
