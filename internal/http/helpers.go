package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"budget/internal/core"
)

// formatAmount renders a with the currency symbol (e.g. "$12.34").
func formatAmount(a core.Amount, currency string) string {
	return a.Display(currency)
}

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user for err.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "Title is required."
	case errors.Is(err, core.ErrTitleTooLong):
		return "Title is too long."
	case errors.Is(err, core.ErrCategoryLong):
		return "Category is too long."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a non-negative number such as 12.50."
	case errors.Is(err, core.ErrInvalidType):
		return "Type must be income or expense."
	case errors.Is(err, core.ErrNotAuthenticated):
		return "Please sign in."
	case errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return "The ledger is temporarily unavailable. Showing the last known state."
	default:
		return "Something went wrong."
	}
}

// percent scales v against limit to 0..100, keeping tiny non-zero values visible.
func percent(v, limit core.Amount) int {
	if !limit.IsPositive() || !v.IsPositive() {
		return 0
	}
	width := int(v.Shift(2).Div(limit.Decimal).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
