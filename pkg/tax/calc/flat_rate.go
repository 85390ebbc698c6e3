package calc

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/money"

	"github.com/shopspring/decimal"
)

// FlatRate taxes one fact at a single rate:
//
//	base  = max(facts[base_item], 0)
//	total = round(base * rate)
//
// Rounding happens once, on the product. The taxable_base line item is the
// base rounded for display only.
type FlatRate struct{}

func (FlatRate) Name() string { return "flat_rate" }

func (f FlatRate) Apply(facts *entity.FinancialFacts, params Params) (*Outcome, error) {
	baseItem := params.String("base_item")
	rate := params.Decimal("rate")
	if err := params.Err(f.Name()); err != nil {
		return nil, err
	}

	out := &Outcome{}
	base, ok := facts.Item(baseItem)
	if !ok {
		out.MissingFacts = append(out.MissingFacts, baseItem)
		base = decimal.Zero
	}
	if base.IsNegative() {
		base = decimal.Zero
	}

	tax := money.RoundHalfUp(base.Mul(rate), 0)

	out.LineItems = []entity.LineItem{
		{Name: LineTaxableBase, Amount: money.RoundHalfUp(base, 0)},
		{Name: LineCorpTax, Amount: tax},
		{Name: LineTotal, Amount: tax},
	}
	out.Total = tax
	return out, nil
}
