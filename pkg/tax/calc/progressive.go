package calc

import (
	"fmt"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/money"

	"github.com/shopspring/decimal"
)

// Bracket taxes the slice of income between the previous bracket's threshold
// and Threshold. A nil Threshold is open-ended.
type Bracket struct {
	Threshold *decimal.Decimal
	Rate      decimal.Decimal
}

// CorporateProgressive applies a bracket schedule to an approximated taxable
// income, then a surtax on the corporate tax.
//
// Parameters: taxable_ratio, surtax_rate, bracket_N_rate and bracket_N_threshold
// for N = 1.. (the last threshold may be omitted or "inf").
type CorporateProgressive struct{}

func (CorporateProgressive) Name() string { return "corporate_progressive" }

func (f CorporateProgressive) Apply(facts *entity.FinancialFacts, params Params) (*Outcome, error) {
	ratio := params.Decimal("taxable_ratio")
	surtaxRate := params.Decimal("surtax_rate")
	brackets := readBrackets(&params)
	if err := params.Err(f.Name()); err != nil {
		return nil, err
	}

	out := &Outcome{}
	income, ok := facts.Item(entity.ItemOperatingIncome)
	if !ok || !income.IsPositive() {
		net, netOK := facts.Item(entity.ItemNetIncome)
		switch {
		case netOK:
			income = net
		case !ok:
			out.MissingFacts = append(out.MissingFacts, entity.ItemOperatingIncome)
			income = decimal.Zero
		}
	}

	taxable := income.Mul(ratio)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	taxable = money.RoundHalfUp(taxable, 0)

	corpTax := money.RoundHalfUp(TaxByBrackets(taxable, brackets), 0)
	surtax := money.RoundHalfUp(corpTax.Mul(surtaxRate), 0)
	total := corpTax.Add(surtax)

	out.LineItems = []entity.LineItem{
		{Name: LineTaxableBase, Amount: taxable},
		{Name: LineCorpTax, Amount: corpTax},
		{Name: LineSurtax, Amount: surtax},
		{Name: LineTotal, Amount: total},
	}
	out.Total = total
	return out, nil
}

// TaxByBrackets sums rate * slice over every bracket the income reaches.
func TaxByBrackets(income decimal.Decimal, brackets []Bracket) decimal.Decimal {
	tax := decimal.Zero
	if !income.IsPositive() {
		return tax
	}
	prev := decimal.Zero
	for _, b := range brackets {
		upper := income
		if b.Threshold != nil && b.Threshold.LessThan(income) {
			upper = *b.Threshold
		}
		if slice := upper.Sub(prev); slice.IsPositive() {
			tax = tax.Add(slice.Mul(b.Rate))
		}
		if b.Threshold == nil || !b.Threshold.LessThan(income) {
			break
		}
		prev = *b.Threshold
	}
	return tax
}

func readBrackets(params *Params) []Bracket {
	var brackets []Bracket
	for n := 1; params.Has(fmt.Sprintf("bracket_%d_rate", n)); n++ {
		b := Bracket{Rate: params.Decimal(fmt.Sprintf("bracket_%d_rate", n))}
		thresholdName := fmt.Sprintf("bracket_%d_threshold", n)
		last := !params.Has(fmt.Sprintf("bracket_%d_rate", n+1))
		if raw, ok := params.snapshot.Lookup(thresholdName); ok && raw != "inf" {
			t := params.Decimal(thresholdName)
			b.Threshold = &t
		} else if !last {
			params.missing = append(params.missing, thresholdName)
		}
		brackets = append(brackets, b)
	}
	if len(brackets) == 0 {
		params.missing = append(params.missing, "bracket_1_rate")
	}
	return brackets
}
