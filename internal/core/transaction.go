package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Length limits in characters.
const (
	maxTitleLen    = 200
	maxCategoryLen = 100
)

type (
	TransactionType string

	// Transaction is a single ledger entry. Amount is always a magnitude;
	// the sign is derived from Type when aggregating.
	Transaction struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Title     string          `json:"title"`
		Amount    Amount          `json:"amount"`
		Category  string          `json:"category"`
		Type      TransactionType `json:"type"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// TransactionInput is the raw add-form payload before validation.
	TransactionInput struct {
		Title    string `json:"title"`
		Amount   string `json:"amount"`
		Category string `json:"category"`
		Type     string `json:"type"`
	}
)

var (
	ErrValidation    = errors.New("validation error")
	ErrEmptyTitle    = fmt.Errorf("%w: empty title", ErrValidation)
	ErrTitleTooLong  = fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, maxTitleLen)
	ErrCategoryLong  = fmt.Errorf("%w: category too long (max %d characters)", ErrValidation, maxCategoryLen)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidType   = fmt.Errorf("%w: invalid transaction type", ErrValidation)

	// ErrNotAuthenticated is returned when no user identifier is available.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStoreUnavailable wraps failures of the underlying persistence.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (t Transaction) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(t.Category) > maxCategoryLen {
		return ErrCategoryLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// Parse validates the input and builds a transaction owned by userID.
// ID and CreatedAt are left for the store layer to assign.
func (in TransactionInput) Parse(userID string) (Transaction, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, err
	}
	typ, err := ParseTransactionType(in.Type)
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		UserID:   userID,
		Title:    strings.TrimSpace(in.Title),
		Amount:   amount,
		Category: strings.TrimSpace(in.Category),
		Type:     typ,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}
