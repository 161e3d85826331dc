package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"expensemanager/internal/auth"
	"expensemanager/internal/backend"
	"expensemanager/internal/cache"
	"expensemanager/internal/cli"
	"expensemanager/internal/config"
	"expensemanager/internal/core"
	apphttp "expensemanager/internal/http"
	"expensemanager/internal/log"
	"expensemanager/internal/scheduler"
	"expensemanager/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	gin.SetMode(gin.ReleaseMode)

	if err := run(logger, cfg); err != nil {
		logger.Error("Expense API stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	store, factory := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	notifier, closeNotifier := factory.CreateNotifier(backend.NotifierFromAppConfig(cfg))
	if closeNotifier != nil {
		defer closeNotifier()
	}

	expenses := services.NewExpenseService(store.Backend, notifier, store.Backend)
	sessions := auth.NewManager(store.Backend, store.Backend, cfg.SessionTTL)
	if cfg.SessionCacheSize > 0 {
		sessions.WithSessionCache(cache.NewLRUCache[core.Session](cfg.SessionCacheSize, cfg.SessionCacheTTL))
	}
	summary := services.NewSummaryJob(store.Backend, store.Backend, store.Backend, os.Stdout, core.Role(cfg.SummaryRole))

	hour, minute, err := scheduler.ParseRunAt(cfg.SummaryRunAt)
	if err != nil {
		return err
	}
	daily := scheduler.NewDaily(hour, minute, summary.Run, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apphttp.Deps{
		Expenses: expenses,
		Auth:     sessions,
		Summary:  summary,
		ErrorLog: store.Backend,
		Ready:    store.Ping,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expense API",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return cli.ShutdownWithTimeout(logger, "http", 30*time.Second, srv.Shutdown)
	})

	g.Go(func() error {
		err := daily.Run(log.NewContext(gctx, logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
