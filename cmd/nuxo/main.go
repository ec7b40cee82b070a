package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"nuxo/internal/amqp"
	"nuxo/internal/backend"
	"nuxo/internal/bot"
	"nuxo/internal/config"
	"nuxo/internal/export"
	"nuxo/internal/flows"
	"nuxo/internal/form"
	apphttp "nuxo/internal/http"
	"nuxo/internal/log"
	"nuxo/internal/ratelimit"
	"nuxo/internal/report"
	"nuxo/internal/services"
	"nuxo/internal/session"
	"nuxo/internal/telegram"
)

const amqpAttempts = 5

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel)})
	log.SetDefault(logger)

	if err := cfg.ValidateBot(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("Bot stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Bot stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	ledger, err := backend.Open(ctx, backendCfg, logger)
	if err != nil {
		return err
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpAttempts, logger)
		if err != nil {
			ledger.Close()
			return err
		}
		publisher = client
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP publishing disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(ledger, publisher, logger)
	defer func() {
		if err := expenses.Close(); err != nil {
			logger.Error("Failed to close expense service", log.FieldError, err)
		}
	}()

	store := session.NewStore(cfg.SessionTTL)
	limiter := ratelimit.New(cfg.RateLimit)
	janitor := session.NewJanitor(logger)
	janitor.Register(store)
	janitor.Register(limiter)
	if err := janitor.Start(cfg.SessionSweep); err != nil {
		return err
	}
	defer janitor.Stop()

	format := report.NewFormatter(cfg.Locale)
	deps := flows.Deps{Expenses: expenses, Catalog: catalog, Format: format, Logger: logger}
	engine := form.NewEngine(store, logger,
		flows.NewRegistration(deps),
		flows.NewVisualization(deps),
		flows.NewExport(deps, export.NewXLSX(cfg.ExportDir, catalog.Label, logger)),
	)
	dispatcher := bot.NewDispatcher(engine, expenses, catalog, format, logger)

	adapter, err := telegram.New(cfg.TelegramToken, dispatcher, cfg.Workers, logger)
	if err != nil {
		return err
	}
	adapter.LimitWith(limiter)

	opts := []apphttp.Option{
		apphttp.WithCheck("ledger", ledger.Ping),
		apphttp.WithGauge("active_sessions", "Chats with an open form", store.Len),
		apphttp.WithGauge("rate_limited_chats", "Chats tracked by the rate limiter", limiter.ActiveClients),
	}
	if client, ok := publisher.(*amqp.Client); ok {
		opts = append(opts, apphttp.WithCheck("amqp", client.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, logger, opts...)

	logger.Info("Starting nuxo bot",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port, "backend", cfg.DataBackend, "workers", cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// the health server has nothing to report once polling ends
		defer stop()
		return adapter.Run(gctx)
	})
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
