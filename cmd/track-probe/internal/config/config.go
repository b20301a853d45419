// Package config provides configuration management for the track-probe CLI.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	tracking "github.com/founderos/tracking-go"
)

// Config holds all configuration for the probe run.
type Config struct {
	BrandID  string
	Tracker  tracking.Config
	Database DatabaseConfig
}

// DatabaseConfig holds the optional durable-store connection configuration.
// When DSN is empty the probe runs with in-memory state only.
type DatabaseConfig struct {
	Driver string // mysql, postgres, sqlite3
	DSN    string
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	trackerCfg := tracking.DefaultConfig()
	trackerCfg.XAPIKey = getEnv("TRACKING_API_KEY", "")
	trackerCfg.Environment = tracking.Environment(getEnv("TRACKING_ENVIRONMENT", string(tracking.EnvironmentQC)))
	trackerCfg.APIURL = getEnv("TRACKING_API_URL", "")
	trackerCfg.BatchSize = getEnvInt("TRACKING_BATCH_SIZE", trackerCfg.BatchSize)
	trackerCfg.BatchFlushIntervalMS = getEnvInt("TRACKING_FLUSH_INTERVAL_MS", trackerCfg.BatchFlushIntervalMS)
	trackerCfg.BatchRequestTimeoutMS = getEnvInt("TRACKING_REQUEST_TIMEOUT_MS", trackerCfg.BatchRequestTimeoutMS)

	cfg := &Config{
		BrandID: getEnv("TRACKING_BRAND_ID", ""),
		Tracker: trackerCfg,
		Database: DatabaseConfig{
			Driver: getEnv("TRACKING_DB_DRIVER", "sqlite3"),
			DSN:    getEnv("TRACKING_DB_DSN", ""),
		},
	}

	if cfg.BrandID == "" {
		return nil, fmt.Errorf("TRACKING_BRAND_ID environment variable is required")
	}
	if cfg.Tracker.XAPIKey == "" {
		return nil, fmt.Errorf("TRACKING_API_KEY environment variable is required")
	}

	return cfg, nil
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
