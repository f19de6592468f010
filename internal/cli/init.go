// Package cli provides common initialization shared by cmd/goalpad and
// cmd/goalpad-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"goalpad/internal/config"
	applog "goalpad/internal/log"
	"goalpad/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore selects the persistence backend from configuration.
// Exits the process if the backend cannot be opened.
func OpenStore(logger *applog.Logger, cfg *config.Config) storage.Store {
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository",
				"error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
		return repo
	default:
		logger.Info("Initialized memory backend")
		return storage.NewMemoryRepository()
	}
}
