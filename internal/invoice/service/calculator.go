package service

import (
	"sort"
	"strings"
	"time"

	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/nexuscore/nexuscore/pkg/money"
)

// Calculation is the priced form of an invoice before persistence.
// Tax is rounded half-even exactly once per distinct category on the
// summed base, so Total is always Subtotal + the sum of tax lines with
// no reconciliation step.
type Calculation struct {
	Subtotal money.Money
	Tax      money.Money
	Total    money.Money
	Lines    []CalculatedLine
	TaxLines []CalculatedTaxLine
}

type CalculatedLine struct {
	Description string
	Quantity    int64
	UnitPrice   money.Money
	Category    string
	LineTotal   money.Money
}

type CalculatedTaxLine struct {
	Category string
	RateBps  int64
	IRASCode string
	Taxable  money.Money
	Tax      money.Money
}

// Calculate prices a set of invoice lines against the rules effective at
// the issuance instant. Any gap in rule coverage fails the whole invoice
// with ErrNoApplicableRule.
func Calculate(lines []invoicedomain.LineInput, currency string, issuedAt time.Time, resolver taxdomain.Resolver) (*Calculation, error) {
	if len(lines) == 0 {
		return nil, invoicedomain.ErrEmptyInvoice
	}

	calc := &Calculation{
		Subtotal: money.Zero(currency),
		Tax:      money.Zero(currency),
		Lines:    make([]CalculatedLine, 0, len(lines)),
	}

	taxable := make(map[string]money.Money)
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, invoicedomain.ErrNegativeQuantity
		}
		if line.UnitPrice < 0 {
			return nil, invoicedomain.ErrNegativePrice
		}
		category := strings.TrimSpace(line.Category)
		if category == "" {
			return nil, taxdomain.ErrInvalidCategory
		}

		unitPrice, err := money.New(line.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		lineTotal := unitPrice.MulQty(line.Quantity)

		calc.Subtotal, err = calc.Subtotal.Add(lineTotal)
		if err != nil {
			return nil, err
		}

		base, ok := taxable[category]
		if !ok {
			base = money.Zero(currency)
		}
		taxable[category], err = base.Add(lineTotal)
		if err != nil {
			return nil, err
		}

		calc.Lines = append(calc.Lines, CalculatedLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			Category:    category,
			LineTotal:   lineTotal,
		})
	}

	categories := make([]string, 0, len(taxable))
	for category := range taxable {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		snapshot, err := resolver.RateFor(category, issuedAt)
		if err != nil {
			return nil, err
		}

		base := taxable[category]
		tax := base.ApplyRateBps(snapshot.RateBps)
		calc.Tax, err = calc.Tax.Add(tax)
		if err != nil {
			return nil, err
		}

		calc.TaxLines = append(calc.TaxLines, CalculatedTaxLine{
			Category: category,
			RateBps:  snapshot.RateBps,
			IRASCode: snapshot.IRASCode,
			Taxable:  base,
			Tax:      tax,
		})
	}

	var err error
	calc.Total, err = calc.Subtotal.Add(calc.Tax)
	if err != nil {
		return nil, err
	}
	return calc, nil
}
