// Package memory is an in-process ledger backend for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
	ids   map[string]struct{}
}

func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Insert appends the record. Duplicate ids are rejected.
func (s *Store) Insert(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[tx.ID]; dup {
		return core.Transaction{}, fmt.Errorf("duplicate transaction id %q", tx.ID)
	}
	s.ids[tx.ID] = struct{}{}
	s.items = append(s.items, tx)
	return tx, nil
}

// ListByUser returns the user's records in insertion order.
func (s *Store) ListByUser(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Delete removes the record if it belongs to userID.
func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			// ids stay reserved so they are never reused
			return nil
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
