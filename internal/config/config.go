// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	AllocTimeout time.Duration
	LogLevel     slog.Level
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is loaded first when
// present. Optional variables with defaults: POOLD_LISTEN_ADDR
// (127.0.0.1:8080), POOLD_DB_PATH (poold.db), POOLD_ALLOC_TIMEOUT (5s),
// POOLD_LOG_LEVEL (info).
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("POOLD_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "poold.db"
	if v, ok := os.LookupEnv("POOLD_DB_PATH"); ok {
		dbPath = v
	}

	allocTimeout := 5 * time.Second
	if v, ok := os.LookupEnv("POOLD_ALLOC_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("POOLD_ALLOC_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("POOLD_ALLOC_TIMEOUT must be positive, got %q", v)
		}
		allocTimeout = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("POOLD_LOG_LEVEL"); ok {
		switch strings.ToLower(v) {
		case "debug":
			logLevel = slog.LevelDebug
		case "info":
			logLevel = slog.LevelInfo
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			return nil, fmt.Errorf("POOLD_LOG_LEVEL has unknown level %q", v)
		}
	}

	return &Config{
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		AllocTimeout: allocTimeout,
		LogLevel:     logLevel,
	}, nil
}
