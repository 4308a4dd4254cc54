// Package snapshot keeps a local JSON copy of each user's ledger so the
// dashboard has something to show before (or without) the backing store.
// It is a cache, never the source of truth.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"budget/internal/core"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Store struct {
	mu  sync.Mutex
	dir string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Load returns the records stored under key. ok is false when nothing was saved.
func (s *Store) Load(key string) ([]core.Transaction, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var records []core.Transaction
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	if records == nil {
		records = []core.Transaction{}
	}
	return records, true, nil
}

// Save replaces the records stored under key. The write is atomic: readers
// see either the old or the new file, never a partial one.
func (s *Store) Save(key string, records []core.Transaction) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if records == nil {
		records = []core.Transaction{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Delete drops the snapshot for key. Missing snapshots are not an error.
func (s *Store) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
