// Package calc turns financial facts and a parameter snapshot into a tax
// result. Everything here is pure: no I/O, no clock, no randomness.
package calc

import (
	"fmt"
	"sort"
	"strings"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/money"

	"github.com/shopspring/decimal"
)

// Line item names, in the order they appear on a result.
const (
	LineTaxableBase = "taxable_base"
	LineCorpTax     = "corp_tax"
	LineSurtax      = "surtax"
	LineTotal       = "total_tax"
)

// Outcome is what a formula produces before the engine assembles a result.
type Outcome struct {
	LineItems    []entity.LineItem
	Total        decimal.Decimal
	MissingFacts []string
}

// Formula is one named computation a snapshot can select.
type Formula interface {
	Name() string
	Apply(facts *entity.FinancialFacts, params Params) (*Outcome, error)
}

// MissingParametersError lists every parameter a snapshot failed to provide.
type MissingParametersError struct {
	Formula string
	Names   []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("formula %s: missing parameters: %s", e.Formula, strings.Join(e.Names, ", "))
}

type Engine struct {
	formulas map[string]Formula
}

// NewEngine registers the given formulas, or the built-in set when none are given.
func NewEngine(formulas ...Formula) *Engine {
	if len(formulas) == 0 {
		formulas = []Formula{FlatRate{}, CorporateProgressive{}}
	}
	registry := make(map[string]Formula, len(formulas))
	for _, f := range formulas {
		if _, exists := registry[f.Name()]; exists {
			panic(fmt.Sprintf("calc: formula %q registered twice", f.Name()))
		}
		registry[f.Name()] = f
	}
	return &Engine{formulas: registry}
}

// Formulas returns the registered formula names, sorted.
func (e *Engine) Formulas() []string {
	names := make([]string, 0, len(e.formulas))
	for name := range e.formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute produces a pending result. Id, session, attempt and timestamps are
// left for the caller so identical inputs give identical output.
func (e *Engine) Compute(facts *entity.FinancialFacts, snapshot *entity.ParameterSnapshot) (*entity.CalcResult, error) {
	if facts == nil || snapshot == nil {
		return nil, apperror.New(apperror.KindInternal, "calc.Compute", "facts and snapshot are required")
	}

	formula, ok := e.formulas[snapshot.Formula]
	if !ok {
		return nil, &apperror.Error{
			Kind:    apperror.KindParameterMissing,
			Op:      "calc.Compute",
			Message: fmt.Sprintf("snapshot %s selects unknown formula %q", snapshot.Version, snapshot.Formula),
		}
	}

	out, err := formula.Apply(facts, NewParams(snapshot))
	if err != nil {
		return nil, apperror.FromExternal("calc.Compute", err, apperror.KindParameterMissing)
	}

	lines := make([]entity.LineItem, len(out.LineItems))
	for i, li := range out.LineItems {
		lines[i] = entity.LineItem{Name: li.Name, Amount: canonical(li.Amount)}
	}

	missing := append([]string(nil), out.MissingFacts...)
	sort.Strings(missing)

	return &entity.CalcResult{
		Subject:         facts.Subject,
		SubjectName:     facts.DisplayName(),
		Period:          facts.Period,
		SnapshotVersion: snapshot.Version,
		Formula:         snapshot.Formula,
		FactsId:         facts.Id,
		Provenance:      facts.Provenance,
		LineItems:       lines,
		Total:           canonical(out.Total),
		MissingFacts:    missing,
		Status:          entity.CalcStatusPending,
	}, nil
}

// canonical strips trailing exponent differences so equal amounts compare
// and serialize identically.
func canonical(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(money.Canonical(d))
}
