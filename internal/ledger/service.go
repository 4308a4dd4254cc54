package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
)

// Service enforces the ledger contract on top of a Store: authentication,
// validation, id assignment and error classification.
type Service struct {
	store     Store
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithPublisher enables ledger events. A nil publisher is ignored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.Discard(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrNotAuthenticated
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "List transactions failed",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		return nil, fmt.Errorf("list transactions: %w: %w", core.ErrStoreUnavailable, err)
	}
	if records == nil {
		records = []core.Transaction{}
	}
	s.logger.DebugContext(ctx, "Listed transactions",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpList,
		log.FieldRecordCount, len(records))
	return records, nil
}

// Add validates input and persists a new record owned by userID.
func (s *Service) Add(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Transaction{}, core.ErrNotAuthenticated
	}

	tx, err := in.Parse(userID)
	if err != nil {
		s.logger.DebugContext(ctx, "Rejected transaction input",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		return core.Transaction{}, err
	}
	tx.ID = s.newID()
	tx.CreatedAt = s.now().UTC()

	saved, err := s.store.Insert(ctx, tx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Insert transaction failed",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
		return core.Transaction{}, fmt.Errorf("add transaction: %w: %w", core.ErrStoreUnavailable, err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx, userID, saved.ID, saved.Title,
		saved.Amount.String(), saved.Category, saved.Type.String())

	s.publish(ctx, amqp.NewCreatedEvent(saved))
	return saved, nil
}

// Remove deletes the user's record. A blank or unknown id is a no-op.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrNotAuthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	if err := s.store.Delete(ctx, userID, id); err != nil {
		s.logger.ErrorContext(ctx, "Delete transaction failed",
			log.FieldUserID, userID,
			log.FieldTxID, id,
			log.FieldOperation, log.OpDelete,
			log.FieldError, err)
		return fmt.Errorf("remove transaction: %w: %w", core.ErrStoreUnavailable, err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionDeleted(ctx, userID, id)

	s.publish(ctx, amqp.NewDeletedEvent(userID, id))
	return nil
}

// publish is best effort: the mutation has already been committed.
func (s *Service) publish(ctx context.Context, event amqp.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldTxID, event.ID,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
