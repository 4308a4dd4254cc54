package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budget/internal/core"
)

// EventType identifies a ledger mutation.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionDeleted EventType = "transaction.deleted"
)

var ErrMalformedEvent = errors.New("malformed ledger event")

// Event is published after every successful ledger mutation.
// Deleted events only carry the id and owner.
type Event struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Category  string    `json:"category,omitempty"`
	TxType    string    `json:"tx_type,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCreatedEvent builds the event for a freshly inserted transaction.
func NewCreatedEvent(tx core.Transaction) Event {
	return Event{
		Type:      TransactionCreated,
		ID:        tx.ID,
		UserID:    tx.UserID,
		Title:     tx.Title,
		Amount:    tx.Amount.String(),
		Category:  tx.Category,
		TxType:    tx.Type.String(),
		CreatedAt: tx.CreatedAt,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a removed transaction.
func NewDeletedEvent(userID, id string) Event {
	return Event{
		Type:      TransactionDeleted,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and sanity-checks an event payload.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if e.ID == "" {
		return Event{}, fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	switch e.Type {
	case TransactionCreated, TransactionDeleted:
	default:
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	return e, nil
}

// Transaction rebuilds the ledger record carried by a created event.
func (e Event) Transaction() (core.Transaction, error) {
	if e.Type != TransactionCreated {
		return core.Transaction{}, fmt.Errorf("%w: %s carries no transaction", ErrMalformedEvent, e.Type)
	}
	amount, err := core.ParseAmount(e.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	typ, err := core.ParseTransactionType(e.TxType)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return core.Transaction{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Amount:    amount,
		Category:  e.Category,
		Type:      typ,
		CreatedAt: e.CreatedAt,
	}, nil
}
