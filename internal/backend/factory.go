package backend

import (
	"context"
	"fmt"

	"budget/internal/ledger/memory"
	"budget/internal/ledger/mongostore"
	"budget/internal/log"
	"budget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		store := memory.New()
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case SQLiteBackend:
		repo, err := storage.OpenSQLite(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		repo, err := storage.OpenPostgres(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
		return &BackendResult{Store: repo, Cleanup: repo.Close}, nil

	case MongoBackend:
		store, err := mongostore.Open(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo store: %w", err)
		}
		f.logger.Info("Initialized mongo backend", "database", config.MongoDatabase)
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
