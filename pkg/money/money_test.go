package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(100, "sgd")
	require.NoError(t, err)
	assert.Equal(t, "SGD", m.Currency)

	_, err = New(100, "")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = New(100, "DOLLARS")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	sgd := MustNew(100, "SGD")
	usd := MustNew(100, "USD")

	_, err := sgd.Add(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = sgd.Sub(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMulQtyIsExact(t *testing.T) {
	m := MustNew(12_543_000, "SGD") // $125,430.00
	assert.Equal(t, int64(25_086_000), m.MulQty(2).Amount)
	assert.Equal(t, int64(0), m.MulQty(0).Amount)
}

func TestApplyRateBps(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		rateBps int64
		want    int64
	}{
		// The GST mock from the product page: $125,430.00 at 9%.
		{"sg gst nine percent", 12_543_000, 900, 1_128_870},
		{"zero rate", 12_543_000, 0, 0},
		{"rounds down below half", 1001, 900, 90},     // 90.09
		{"rounds up above half", 1011, 900, 91},       // 90.99
		{"half rounds to even down", 1500, 100, 15},   // 15.00 exact
		{"half to even stays even", 250, 200, 5},      // 5.0 exact
		{"half-even down", 1250, 100, 12},             // 12.5 -> 12
		{"half-even up", 1350, 100, 14},               // 13.5 -> 14
		{"negative mirrors positive", -1250, 100, -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Money{Amount: tt.amount, Currency: "SGD"}
			got := m.ApplyRateBps(tt.rateBps)
			assert.Equal(t, tt.want, got.Amount)
			assert.Equal(t, "SGD", got.Currency)
		})
	}
}

func TestApplyRateBpsIdempotentOnRoundedSubtotal(t *testing.T) {
	// Recomputing tax on an already-rounded category subtotal must not drift.
	subtotal := Money{Amount: 123_457, Currency: "SGD"}
	first := subtotal.ApplyRateBps(900)
	second := subtotal.ApplyRateBps(900)
	assert.Equal(t, first, second)
}

func TestString(t *testing.T) {
	assert.Equal(t, "SGD 11288.70", Money{Amount: 1_128_870, Currency: "SGD"}.String())
	assert.Equal(t, "SGD -0.05", Money{Amount: -5, Currency: "SGD"}.String())
	assert.Equal(t, "SGD -12.34", Money{Amount: -1234, Currency: "SGD"}.String())
}
