// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every amount in the system and
// the parser used at the form input boundary.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an exact EUR (or secondary currency) amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

// NewMoney wraps a decimal amount.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// MustMoney parses a decimal literal and panics on error. Intended for
// constants and tests.
func MustMoney(s string) Money {
	return Money{d: decimal.RequireFromString(s)}
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }

// Cents returns the amount in cents, rounded half away from zero.
func (m Money) Cents() int64 {
	return m.d.Shift(2).Round(0).IntPart()
}

// Euros returns the value as a float64 for display purposes only.
// Use the Money methods for arithmetic.
func (m Money) Euros() float64 {
	f, _ := m.d.Float64()
	return f
}

// String renders the exact decimal value, e.g. "1234.5".
func (m Money) String() string {
	return m.d.String()
}

// MarshalJSON encodes the amount as a quoted decimal string so no precision
// is lost on the client.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

// ParseMoney converts a user-entered decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to cents. Negative, zero and malformed values are rejected.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney("12,345") -> 12.35, nil
//	ParseMoney("-1")     -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// ParseOptionalMoney is ParseMoney for optional fields: an empty string or
// an explicit zero is 0.
func ParseOptionalMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil && d.IsZero() {
		return Money{}, nil
	}
	return ParseMoney(s)
}
