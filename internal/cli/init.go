// Package cli provides the initialization shared by cmd/budget,
// cmd/budget-worker and cmd/budgetctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/config"
	"budget/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL/LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.JSON = os.Getenv("LOG_FORMAT") == "json"
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the configured ledger store or exits the process.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldBackend, backendCfg.Type.String(),
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		os.Exit(1)
	}
	return res
}

// OpenAMQP connects the ledger event client. It returns nil when AMQP is
// disabled or unreachable; events are best effort.
func OpenAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	logger = logger.WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, ledger events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}
