// Package cli provides common CLI initialization utilities shared by the
// expense-api, expense-notifier and expense-useradd binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensemanager/internal/backend"
	"expensemanager/internal/config"
	"expensemanager/internal/log"
)

// SetupLogger initializes structured logging at the given level name and
// installs it as the default logger.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			"error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the configured storage backend.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, backend.Factory) {
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := factory.CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldError, err,
			"backend", bc.Type.String(),
			"error_type", log.ErrorTypeDatabase)
		os.Exit(1)
	}
	return result, factory
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// Calling the returned cancel func releases the signal handler.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received",
				"signal", sig.String(),
				log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ShutdownWithTimeout runs stop with a fresh deadline, logging the outcome.
func ShutdownWithTimeout(logger *log.Logger, name string, timeout time.Duration, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := stop(ctx); err != nil {
		logger.Error("Shutdown failed", "target", name, log.FieldError, err)
		return err
	}
	logger.Info("Shutdown complete", "target", name, log.FieldDurationHuman, time.Since(start).String())
	return nil
}
