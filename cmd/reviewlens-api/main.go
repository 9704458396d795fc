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

	"github.com/reviewlens/reviewlens/internal/api"
	"github.com/reviewlens/reviewlens/internal/chat"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/dashboard"
	"github.com/reviewlens/reviewlens/internal/llm"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/schema"
	"github.com/reviewlens/reviewlens/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("reviewlens-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := store.Open(context.Background(), store.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	generator, err := llm.NewGemini(context.Background(), llm.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
		MaxRPS:  cfg.Gemini.MaxRPS,
	})
	if err != nil {
		logger.Error("failed to initialize gemini client", slog.Any("error", err))
		os.Exit(1)
	}

	registry := schema.NewRegistry()
	executor := store.NewExecutor(db, logger, cfg.Database.QueryTimeout)
	orchestrator := chat.NewOrchestrator(registry, generator, executor, logger)
	aggregator := dashboard.NewAggregator(executor)
	composer := dashboard.NewInsightComposer(chat.NewInsightSynthesizer(generator))

	deps := api.Dependencies{
		Logger:            logger,
		Health:            api.CheckDatabase(db),
		DependencyTimeout: 2 * time.Second,
		Registry:          registry,
		Chat:              orchestrator,
		Dashboards:        aggregator,
		Insights:          composer,
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
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
