package backend

import (
	"context"

	"budget/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	MongoURI      string
	MongoDatabase string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}
