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
	"nuxo/internal/config"
	apphttp "nuxo/internal/http"
	"nuxo/internal/log"
	gsheet "nuxo/internal/sheets/google"
	"nuxo/internal/worker"
)

const amqpAttempts = 10

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting nuxo-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
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
	defer ledger.Close()

	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return err
	}
	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: creds,
		Label:           catalog.Label,
	}, logger)
	if err != nil {
		return err
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpAttempts, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(ledger, sheet, logger)
	srv := apphttp.NewServer(":"+cfg.WorkerPort, logger,
		apphttp.WithCheck("ledger", ledger.Ping),
		apphttp.WithCheck("amqp", client.Ping),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return client.ConsumeExpenseRecorded(gctx, cfg.AMQPPrefetch, mirror.HandleExpenseRecorded)
	})
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
