package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for solminerd.
type Config struct {
	// Miner connection
	MinerHost string
	Username  string
	Password  string

	// Polling
	UpdateInterval time.Duration

	// Snapshot journal (empty disables persistence)
	HistoryDB string

	// Metrics endpoint
	MetricsPort int

	// Logging
	LogFile  string
	LogLevel string

	// Optional profile applied at startup (friendly name or raw step)
	StartupProfile string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Username:       "root",
		Password:       "root",
		UpdateInterval: 30 * time.Second,
		HistoryDB:      "solminer.db",
		MetricsPort:    9177,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from a .env file and environment variables.
func LoadConfig() *Config {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("MINER_HOST"); v != "" {
		cfg.MinerHost = v
	}
	if v := os.Getenv("MINER_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("MINER_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.UpdateInterval = d
		}
	}
	if v := os.Getenv("HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MetricsPort = n
		}
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STARTUP_PROFILE"); v != "" {
		cfg.StartupProfile = v
	}

	return cfg
}
