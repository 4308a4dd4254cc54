// Package ledger holds the transaction store contract, the service that
// enforces it, and the per-user view consumed by the presentation layer.
package ledger

import (
	"context"

	"budget/internal/amqp"
	"budget/internal/core"
)

// Ports for persistence backends.
type (
	Lister interface {
		// ListByUser returns the user's records in insertion order.
		ListByUser(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	Writer interface {
		Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	// Deleter removes a record owned by userID. Unknown ids are not an error.
	Deleter interface {
		Delete(ctx context.Context, userID, id string) error
	}

	Store interface {
		Lister
		Writer
		Deleter
		Close() error
	}

	// Publisher receives ledger events after successful mutations.
	Publisher interface {
		Publish(ctx context.Context, event amqp.Event) error
	}

	// SnapshotStore is the local, non-authoritative copy of a user's records.
	SnapshotStore interface {
		Load(key string) ([]core.Transaction, bool, error)
		Save(key string, records []core.Transaction) error
		Delete(key string) error
	}
)
