// Package evaluator scores a computed result for internal consistency and
// decides whether the pipeline accepts it, retries, or gives up.
package evaluator

import (
	"fmt"
	"math"
	"strings"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/tax/calc"

	"github.com/shopspring/decimal"
)

type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionRetry  Decision = "RETRY"
	DecisionFail   Decision = "FAIL"
)

const (
	DefaultHigh       = 0.8
	DefaultLow        = 0.5
	DefaultMaxRetries = 1
)

// Options holds the decision thresholds. A score at exactly High is accepted;
// a score at exactly Low is retried.
type Options struct {
	High       float64
	Low        float64
	MaxRetries int
}

type Option func(*Options)

func WithHigh(v float64) Option {
	return func(o *Options) { o.High = v }
}

func WithLow(v float64) Option {
	return func(o *Options) { o.Low = v }
}

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

type Evaluation struct {
	Score        float64
	Concerns     []string
	MissingFacts []string
	Attempt      int
}

type Evaluator struct {
	opts Options
}

func New(opts ...Option) *Evaluator {
	o := Options{High: DefaultHigh, Low: DefaultLow, MaxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Low > o.High {
		o.Low = o.High
	}
	return &Evaluator{opts: o}
}

func (e *Evaluator) Options() Options {
	return e.opts
}

var (
	two       = decimal.NewFromInt(2)
	half      = decimal.NewFromFloat(0.5)
	rateFloor = decimal.NewFromFloat(0.05)
	rateCeil  = decimal.NewFromFloat(0.35)
)

// Evaluate is deterministic: concerns come out in check order and the score
// is rounded to four decimals.
func (e *Evaluator) Evaluate(result *entity.CalcResult, facts *entity.FinancialFacts) Evaluation {
	ev := Evaluation{Score: 1.0, Concerns: []string{}, Attempt: result.Attempt}

	if len(result.MissingFacts) > 0 {
		ev.MissingFacts = append([]string(nil), result.MissingFacts...)
		ev.Score = 0
		ev.Concerns = append(ev.Concerns, fmt.Sprintf("required facts missing: %s", strings.Join(result.MissingFacts, ", ")))
		return ev
	}

	penalize := func(factor float64, concern string) {
		ev.Score *= factor
		ev.Concerns = append(ev.Concerns, concern)
	}

	total := result.Total
	base, hasBase := result.LineItem(calc.LineTaxableBase)

	if total.IsNegative() {
		penalize(0.5, "computed tax is negative")
	}

	if revenue, ok := facts.Item(entity.ItemRevenue); ok && hasBase && base.GreaterThan(revenue.Mul(two)) {
		penalize(0.7, "taxable base exceeds twice the revenue")
	}

	rate := EffectiveRate(result)
	switch {
	case rate.LessThan(rateFloor):
		penalize(0.9, fmt.Sprintf("effective rate %s%% is below 5%%", rate.Shift(2).StringFixed(2)))
	case rate.GreaterThan(rateCeil):
		penalize(0.8, fmt.Sprintf("effective rate %s%% is above 35%%", rate.Shift(2).StringFixed(2)))
	}

	if opIncome, ok := facts.Item(entity.ItemOperatingIncome); ok && opIncome.IsPositive() {
		if total.GreaterThan(opIncome.Mul(half)) {
			penalize(0.8, "tax exceeds half of operating income")
		}
	}

	if result.Provenance == entity.ProvenanceMock {
		penalize(0.9, "degraded data: financial facts are mock values")
	}

	ev.Score = math.Round(math.Max(0, math.Min(1, ev.Score))*10000) / 10000
	return ev
}

// Decide maps an evaluation to the next pipeline step. Retries stop once the
// attempt number passes MaxRetries.
func (e *Evaluator) Decide(ev Evaluation) Decision {
	switch {
	case len(ev.MissingFacts) > 0:
		return DecisionFail
	case ev.Score >= e.opts.High:
		return DecisionAccept
	case ev.Score < e.opts.Low:
		return DecisionFail
	case ev.Attempt <= e.opts.MaxRetries:
		return DecisionRetry
	default:
		return DecisionFail
	}
}

// EffectiveRate is total / taxable base, or zero when there is no base.
func EffectiveRate(result *entity.CalcResult) decimal.Decimal {
	base, ok := result.LineItem(calc.LineTaxableBase)
	if !ok || !base.IsPositive() {
		return decimal.Zero
	}
	return result.Total.DivRound(base, 6)
}
