package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"

	"budget/internal/core"
	"budget/internal/log"
)

// SnapshotKey is the local cache key for a user's records.
func SnapshotKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return "transactions-" + hex.EncodeToString(sum[:8])
}

// View is the in-process list of one user's records, most recent first.
// Mutations go through the Service; on success the delta is applied locally
// and the snapshot rewritten, on failure the previous state is kept.
type View struct {
	mu       sync.Mutex
	userID   string
	service  *Service
	snapshot SnapshotStore
	logger   *log.Logger
	records  []core.Transaction
	loaded   bool
}

// NewView creates a view for userID. snapshot may be nil.
func NewView(service *Service, snapshot SnapshotStore, userID string, logger *log.Logger) *View {
	if logger == nil {
		logger = log.Discard()
	}
	return &View{
		userID:   userID,
		service:  service,
		snapshot: snapshot,
		logger:   logger.WithComponent(log.ComponentLedger),
	}
}

func (v *View) UserID() string { return v.userID }

// Load refreshes the view from the store. When a snapshot exists it is used
// as the initial state so a store failure still leaves something to render.
func (v *View) Load(ctx context.Context) ([]core.Transaction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadLocked(ctx)
}

func (v *View) loadLocked(ctx context.Context) ([]core.Transaction, error) {
	if !v.loaded && v.snapshot != nil {
		if cached, ok, err := v.snapshot.Load(SnapshotKey(v.userID)); err != nil {
			v.logger.WarnContext(ctx, "Ignoring unreadable snapshot",
				log.FieldUserID, v.userID, log.FieldError, err)
		} else if ok {
			v.records = cached
			v.loaded = true
		}
	}

	records, err := v.service.ListByUser(ctx, v.userID)
	if err != nil {
		return slices.Clone(v.records), err
	}

	// stores return insertion order; present most recent first
	slices.Reverse(records)
	v.records = records
	v.loaded = true
	v.persist(ctx)
	return slices.Clone(v.records), nil
}

// ensureLoaded fills a view that has never been loaded so a mutation is
// applied to the full list rather than an empty one.
func (v *View) ensureLoaded(ctx context.Context) {
	if v.loaded {
		return
	}
	if _, err := v.loadLocked(ctx); err != nil {
		v.logger.WarnContext(ctx, "Mutating a view that could not be loaded",
			log.FieldUserID, v.userID, log.FieldError, err)
	}
}

// Add creates a record and prepends it to the view.
func (v *View) Add(ctx context.Context, in core.TransactionInput) ([]core.Transaction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded(ctx)

	tx, err := v.service.Add(ctx, v.userID, in)
	if err != nil {
		return slices.Clone(v.records), err
	}

	next := make([]core.Transaction, 0, len(v.records)+1)
	next = append(next, tx)
	next = append(next, v.records...)
	v.records = next
	v.persist(ctx)
	return slices.Clone(v.records), nil
}

// Remove deletes a record and drops it from the view.
func (v *View) Remove(ctx context.Context, id string) ([]core.Transaction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded(ctx)

	if err := v.service.Remove(ctx, v.userID, id); err != nil {
		return slices.Clone(v.records), err
	}

	v.records = slices.DeleteFunc(slices.Clone(v.records), func(tx core.Transaction) bool {
		return tx.ID == id
	})
	v.persist(ctx)
	return slices.Clone(v.records), nil
}

// Records returns a copy of the current state.
func (v *View) Records() []core.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.records)
}

// persist writes the view to the snapshot. A view that never reached a
// known full state is not written, so a partial list never replaces it.
func (v *View) persist(ctx context.Context) {
	if v.snapshot == nil || !v.loaded {
		return
	}
	if err := v.snapshot.Save(SnapshotKey(v.userID), v.records); err != nil {
		v.logger.WarnContext(ctx, "Failed to write snapshot",
			log.FieldUserID, v.userID, log.FieldError, err)
	}
}
