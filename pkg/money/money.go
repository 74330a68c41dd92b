// Package money provides fixed-point currency arithmetic in minor units.
package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	ErrInvalidCurrency  = errors.New("invalid_currency")
)

// Money is an amount in minor units (cents) with an ISO 4217 currency code.
// All arithmetic stays in minor units; amounts are never represented as floats.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New builds a Money value. The currency code is upper-cased and must be
// three letters.
func New(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustNew is New for trusted, compile-time constants. It panics on error.
func MustNew(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Add returns m + other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other. Both operands must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Neg returns the negated amount, used when issuing credit notes.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// MulQty returns m × qty exactly, with no intermediate rounding.
func (m Money) MulQty(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// ApplyRateBps returns m × rate/10000 rounded half to even.
//
// Half-even is the rounding method mandated for GST amounts; it is applied
// exactly once per category subtotal, never per line.
func (m Money) ApplyRateBps(rateBps int64) Money {
	return Money{Amount: roundHalfEven(m.Amount*rateBps, 10000), Currency: m.Currency}
}

// roundHalfEven divides num by den rounding halves to the nearest even
// quotient. den must be positive.
func roundHalfEven(num, den int64) int64 {
	neg := num < 0
	if neg {
		num = -num
	}

	q := num / den
	r := num % den

	switch {
	case 2*r > den:
		q++
	case 2*r == den && q%2 != 0:
		q++
	}

	if neg {
		return -q
	}
	return q
}

// String renders the amount for logs, e.g. "SGD 11288.70".
func (m Money) String() string {
	units := m.Amount / 100
	cents := m.Amount % 100
	if cents < 0 {
		cents = -cents
	}
	if m.Amount < 0 && units == 0 {
		return fmt.Sprintf("%s -0.%02d", m.Currency, cents)
	}
	return fmt.Sprintf("%s %d.%02d", m.Currency, units, cents)
}
