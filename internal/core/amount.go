// Package core provides the ledger domain model and the pure derivations
// computed from it.
//
// This file contains the decimal amount type and its parsing rules.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Bounds on a single transaction amount.
const (
	maxIntDigits  = 15
	maxFracDigits = 10
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// Amount is an exact decimal value. Stored transaction amounts are never
// negative; a negative Amount only appears as a derived balance.
type Amount struct {
	decimal.Decimal
}

// NewAmount builds an Amount from a float, mainly for tests and fixtures.
func NewAmount(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

// ParseAmount converts user input to an Amount.
//
// Input is plain digits with at most one decimal separator, dot (12.34) or
// comma (12,34), and surrounding whitespace. Signs, exponents and thousands
// separators are rejected with ErrInvalidAmount, as is a comma followed by
// exactly three digits ("1,000"), which reads as a thousands group. Zero is
// accepted. At most 15 integer and 10 fraction digits are allowed.
//
// Examples:
//
//	ParseAmount("4.5")   -> 4.5, nil
//	ParseAmount(" 4,50") -> 4.5, nil
//	ParseAmount("1.000") -> 1, nil
//	ParseAmount("1,000") -> ErrInvalidAmount
//	ParseAmount("1e5")   -> ErrInvalidAmount
//	ParseAmount("-1")    -> ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ".,")

	intPart, fracPart := s, ""
	if sep >= 0 {
		intPart, fracPart = s[:sep], s[sep+1:]
		if s[sep] == ',' && len(fracPart) == 3 {
			return Amount{}, ErrInvalidAmount
		}
	}
	if intPart == "" && fracPart == "" {
		return Amount{}, ErrInvalidAmount
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return Amount{}, ErrInvalidAmount
	}
	if len(strings.TrimLeft(intPart, "0")) > maxIntDigits || len(fracPart) > maxFracDigits {
		return Amount{}, ErrInvalidAmount
	}

	if intPart == "" {
		intPart = "0"
	}
	if fracPart == "" {
		fracPart = "0"
	}
	d, err := decimal.NewFromString(intPart + "." + fracPart)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Decimal: d}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// inBounds reports whether a stays within the digit limits of a single
// transaction amount.
func (a Amount) inBounds() bool {
	exp := int(a.Exponent())
	return exp >= -maxFracDigits && a.NumDigits()+exp <= maxIntDigits
}

func (a Amount) Validate() error {
	if a.IsNegative() || !a.inBounds() {
		return ErrInvalidAmount
	}
	return nil
}

func (a Amount) Add(b Amount) Amount { return Amount{Decimal: a.Decimal.Add(b.Decimal)} }
func (a Amount) Sub(b Amount) Amount { return Amount{Decimal: a.Decimal.Sub(b.Decimal)} }
func (a Amount) Equal(b Amount) bool { return a.Decimal.Equal(b.Decimal) }

// MinorUnits returns the amount in 10^-fraction units, rounded half away
// from zero. ok is false when the result does not fit in an int64.
func (a Amount) MinorUnits(fraction int) (units int64, ok bool) {
	m := a.Decimal.Shift(int32(fraction)).Round(0)
	if m.Abs().GreaterThan(maxInt64) {
		return 0, false
	}
	return m.IntPart(), true
}

// Display renders the amount in the given ISO 4217 currency, e.g. "$12.34"
// or "¥1,500". Values too large for the currency's minor units fall back
// to a plain decimal followed by the code.
func (a Amount) Display(code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return a.StringFixed(2) + " " + code
	}
	units, ok := a.MinorUnits(cur.Fraction)
	if !ok {
		return a.StringFixed(int32(cur.Fraction)) + " " + cur.Code
	}
	return money.New(units, cur.Code).Display()
}

// MarshalJSON renders the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings within
// the digit limits of ParseAmount.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if !(Amount{Decimal: d}).inBounds() {
		return fmt.Errorf("amount %.32s: %w", b, ErrInvalidAmount)
	}
	a.Decimal = d
	return nil
}
