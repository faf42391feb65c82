// Package main is the entry point for the Life Desk Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/bot"
	"github.com/KoPyae2/Life-Desk/internal/config"
	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/gemini"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/KoPyae2/Life-Desk/internal/metrics"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/KoPyae2/Life-Desk/internal/scheduler"
	"github.com/KoPyae2/Life-Desk/internal/server"
	"github.com/KoPyae2/Life-Desk/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("life-desk %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	if err := run(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Life Desk stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if err := logger.SetHashSalt(cfg.LogHashSalt); err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:       cfg.OTelExporter,
		ServiceName:    "life-desk",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Log.Info().Msg("Database initialized successfully")

	ai := gemini.NewClientWithGenerator(nil)
	if cfg.AIEnabled() {
		if ai, err = gemini.NewClient(ctx, cfg.GeminiAPIKey); err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		logger.Log.Info().Msg("Gemini assistant enabled")
	} else {
		logger.Log.Info().Msg("GEMINI_API_KEY not set, AI features disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	telegramBot, err := bot.New(cfg, pool, ai, recorder)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	schedOpts := scheduler.Options{Location: cfg.Location}
	if cfg.WeeklySummaryEnabled {
		schedOpts.WeeklySummarySpec = cfg.WeeklySummaryCron
	}
	sched, err := scheduler.New(
		schedOpts,
		repository.NewReminderRepository(pool),
		telegramBot.API(),
		repository.NewUserRepository(pool),
		telegramBot,
		recorder,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	routes := server.Deps{
		Metrics: metrics.Handler(registry),
		DB:      pool,
	}
	if cfg.UseWebhook() {
		routes.Webhook = telegramBot.WebhookHandler()
	}
	httpServer := server.New(cfg.HTTPAddr, server.NewRouter(routes))

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.ListenAndServe() }()

	sched.Start(ctx)

	botErr := make(chan error, 1)
	go func() { botErr <- telegramBot.Start(ctx) }()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Shutting down...")
	case err = <-serveErr:
		stop()
	case err = <-botErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := sched.Stop(shutdownCtx); stopErr != nil {
		logger.Log.Warn().Err(stopErr).Msg("Scheduler did not stop cleanly")
	}
	if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
		logger.Log.Warn().Err(stopErr).Msg("HTTP server did not stop cleanly")
	}

	return err
}
