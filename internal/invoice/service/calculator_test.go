package service

import (
	"testing"
	"time"

	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]taxdomain.RateSnapshot

func (r staticResolver) RateFor(category string, at time.Time) (taxdomain.RateSnapshot, error) {
	snapshot, ok := r[category]
	if !ok {
		return taxdomain.RateSnapshot{}, taxdomain.ErrNoApplicableRule
	}
	return snapshot, nil
}

var gstResolver = staticResolver{
	"standard":   {Category: "standard", RateBps: 900, IRASCode: taxdomain.IRASCodeStandardRate},
	"zero_rated": {Category: "zero_rated", RateBps: 0, IRASCode: taxdomain.IRASCodeZeroRate},
}

func TestCalculateSingleLineNineCentGST(t *testing.T) {
	// S$125,430.00 at 9% GST: tax S$11,288.70, total S$136,718.70.
	calc, err := Calculate([]invoicedomain.LineInput{
		{Description: "enterprise licence", Quantity: 1, UnitPrice: 12_543_000, Category: "standard"},
	}, "SGD", time.Now(), gstResolver)
	require.NoError(t, err)

	assert.Equal(t, int64(12_543_000), calc.Subtotal.Amount)
	assert.Equal(t, int64(1_128_870), calc.Tax.Amount)
	assert.Equal(t, int64(13_671_870), calc.Total.Amount)

	require.Len(t, calc.TaxLines, 1)
	assert.Equal(t, "standard", calc.TaxLines[0].Category)
	assert.Equal(t, int64(900), calc.TaxLines[0].RateBps)
	assert.Equal(t, taxdomain.IRASCodeStandardRate, calc.TaxLines[0].IRASCode)
}

func TestCalculateRoundsOncePerCategory(t *testing.T) {
	// Three lines of S$0.05 at 9% each: per-line rounding would give
	// 3 x 0 cents, but the summed base of 15 cents yields 1 cent.
	calc, err := Calculate([]invoicedomain.LineInput{
		{Quantity: 1, UnitPrice: 5, Category: "standard"},
		{Quantity: 1, UnitPrice: 5, Category: "standard"},
		{Quantity: 1, UnitPrice: 5, Category: "standard"},
	}, "SGD", time.Now(), gstResolver)
	require.NoError(t, err)

	assert.Equal(t, int64(15), calc.Subtotal.Amount)
	assert.Equal(t, int64(1), calc.Tax.Amount)
	require.Len(t, calc.TaxLines, 1)
	assert.Equal(t, calc.Tax.Amount, calc.TaxLines[0].Tax.Amount)
}

func TestCalculateMixedCategories(t *testing.T) {
	calc, err := Calculate([]invoicedomain.LineInput{
		{Description: "local supply", Quantity: 2, UnitPrice: 10_000, Category: "standard"},
		{Description: "export", Quantity: 1, UnitPrice: 50_000, Category: "zero_rated"},
	}, "SGD", time.Now(), gstResolver)
	require.NoError(t, err)

	assert.Equal(t, int64(70_000), calc.Subtotal.Amount)
	assert.Equal(t, int64(1_800), calc.Tax.Amount)
	assert.Equal(t, int64(71_800), calc.Total.Amount)

	require.Len(t, calc.TaxLines, 2)
	assert.Equal(t, "standard", calc.TaxLines[0].Category)
	assert.Equal(t, int64(1_800), calc.TaxLines[0].Tax.Amount)
	assert.Equal(t, "zero_rated", calc.TaxLines[1].Category)
	assert.True(t, calc.TaxLines[1].Tax.IsZero())

	// Total is always subtotal plus the sum of tax lines.
	var taxSum int64
	for _, taxLine := range calc.TaxLines {
		taxSum += taxLine.Tax.Amount
	}
	assert.Equal(t, calc.Subtotal.Amount+taxSum, calc.Total.Amount)
}

func TestCalculateValidation(t *testing.T) {
	now := time.Now()

	_, err := Calculate(nil, "SGD", now, gstResolver)
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyInvoice)

	_, err = Calculate([]invoicedomain.LineInput{
		{Quantity: -1, UnitPrice: 100, Category: "standard"},
	}, "SGD", now, gstResolver)
	assert.ErrorIs(t, err, invoicedomain.ErrNegativeQuantity)

	_, err = Calculate([]invoicedomain.LineInput{
		{Quantity: 1, UnitPrice: -100, Category: "standard"},
	}, "SGD", now, gstResolver)
	assert.ErrorIs(t, err, invoicedomain.ErrNegativePrice)

	_, err = Calculate([]invoicedomain.LineInput{
		{Quantity: 1, UnitPrice: 100, Category: "  "},
	}, "SGD", now, gstResolver)
	assert.ErrorIs(t, err, taxdomain.ErrInvalidCategory)
}

func TestCalculateFailsOnCoverageGap(t *testing.T) {
	// One uncovered category aborts the whole invoice, even when every
	// other line resolves.
	_, err := Calculate([]invoicedomain.LineInput{
		{Quantity: 1, UnitPrice: 10_000, Category: "standard"},
		{Quantity: 1, UnitPrice: 10_000, Category: "imported_services"},
	}, "SGD", time.Now(), gstResolver)
	assert.ErrorIs(t, err, taxdomain.ErrNoApplicableRule)
}

func TestCalculateZeroQuantityLine(t *testing.T) {
	calc, err := Calculate([]invoicedomain.LineInput{
		{Quantity: 0, UnitPrice: 10_000, Category: "standard"},
	}, "SGD", time.Now(), gstResolver)
	require.NoError(t, err)
	assert.True(t, calc.Subtotal.IsZero())
	assert.True(t, calc.Tax.IsZero())
	assert.True(t, calc.Total.IsZero())
}
