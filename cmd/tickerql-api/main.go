package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickerql/tickerql/internal/api"
	"github.com/tickerql/tickerql/internal/app"
	"github.com/tickerql/tickerql/internal/auth"
	"github.com/tickerql/tickerql/internal/config"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("tickerql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	application, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	deps := application.APIDependencies()
	deps.DependencyTimeout = time.Second
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("api key auth enabled", slog.Int("keys", validator.Len()))
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scheduler *ingest.Scheduler
	if application.Ingest != nil && cfg.Ingest.ScheduleEnabled {
		svc := application.Ingest
		scheduler, err = ingest.NewScheduler(cfg.Ingest.Schedule, time.Hour, func(ctx context.Context) error {
			_, err := svc.UpdateAllFinancials(ctx)
			return err
		}, logger)
		if err != nil {
			logger.Error("failed to initialize ingest scheduler", slog.Any("error", err))
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("ingest scheduler started", slog.String("schedule", cfg.Ingest.Schedule), slog.Time("next", scheduler.Next()))
	}

	if application.Ingest != nil && cfg.Ingest.WatchTickers {
		svc := application.Ingest
		go func() {
			logger.Info("watching tickers file", slog.String("path", cfg.Ingest.TickersFile))
			if err := svc.WatchTickersFile(ctx); err != nil {
				logger.Error("tickers file watcher stopped", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("ingest scheduler did not stop cleanly", slog.Any("error", err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
