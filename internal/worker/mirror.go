package worker

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/log"
	"budget/internal/sheets"
)

// MirrorWorker applies ledger events to a sheets.Mirror.
type MirrorWorker struct {
	mirror sheets.Mirror
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent processes a single ledger event. A returned error requeues it,
// except for events that can never succeed, which are logged and dropped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event amqp.Event) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldOperation, log.OpMirror,
		"type", event.Type,
		log.FieldTxID, event.ID)

	var err error
	switch event.Type {
	case amqp.TransactionCreated:
		tx, convErr := event.Transaction()
		if convErr != nil {
			w.logger.ErrorContext(ctx, "Dropping unusable ledger event",
				log.FieldTxID, event.ID,
				log.FieldErrorType, log.ErrorTypeValidation,
				log.FieldError, convErr)
			return nil
		}
		err = w.mirror.AppendTransaction(ctx, tx)
	case amqp.TransactionDeleted:
		err = w.mirror.DeleteTransaction(ctx, event.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", "type", event.Type)
		return nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		w.logger.ErrorContext(ctx, "Mirror update failed",
			log.FieldTxID, event.ID,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return fmt.Errorf("mirror %s %s: %w", event.Type, event.ID, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event", "type", event.Type, log.FieldTxID, event.ID)
	return nil
}

// Consumer is the subset of amqp.Client the worker runs on.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, amqp.Event) error) error
}

// Run consumes events until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
