package sheets

import (
	"context"
	"encoding/json"

	"budget/internal/core"
)

// Mirror keeps a reporting copy of ledger records outside the store.
// Both operations must be idempotent: events can be redelivered.
type Mirror interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// Header is the column layout of mirrored rows.
var Header = []any{"id", "user_id", "created_at", "type", "title", "category", "amount"}

// Row renders a transaction in Header order. The amount is sent as a JSON
// number so the sheet can aggregate it; every other cell is plain text.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.UserID,
		tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		tx.Type.String(),
		tx.Title,
		tx.Category,
		json.Number(tx.Amount.StringFixed(2)),
	}
}
