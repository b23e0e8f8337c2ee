package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgy/internal/amqp"
	"budgy/internal/backend"
	"budgy/internal/cli"
	"budgy/internal/config"
	"budgy/internal/log"
	"budgy/internal/sheets"
	gsheet "budgy/internal/sheets/google"
	memsheet "budgy/internal/sheets/memory"
	"budgy/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	loc := cli.MustLocation(logger, cfg)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	if err := run(cfg, loc, logger); err != nil {
		logger.Error("Worker error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, loc *time.Location, logger *log.Logger) error {
	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	// The worker only reads the ledger, so the store is opened without
	// event publishing.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	backendCfg.AMQPURL = ""
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is not shared with the server; exports will be empty")
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	var writer sheets.SummaryWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		writer = client
		logger.Info("Google Sheets export enabled", log.FieldSpreadsheetID, cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	summaries := worker.NewSummaryWorker(result.Store, writer, loc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events",
			log.FieldOperation, log.OpStartup,
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		err := amqpClient.ConsumeLedgerEvents(gctx, summaries.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("consume ledger events: %w", err)
	}
	return nil
}
