package main

import (
	"os"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Mirror configuration invalid",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	sheetsLogger := logger.WithComponent(log.ComponentSheets)
	mirror, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		sheetsLogger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	sheetsLogger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	// the worker cannot run without a broker, unlike the server
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldErrorType, log.ErrorTypeNetwork, log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("Starting budget-worker", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)
	if err := worker.NewMirrorWorker(mirror, logger).Run(ctx, client); err != nil {
		logger.Error("Message consumption failed", log.FieldOperation, log.OpConsume, log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
