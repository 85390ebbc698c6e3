package evaluator

import (
	"testing"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/tax/calc"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func result(base, total string, provenance entity.Provenance) *entity.CalcResult {
	return &entity.CalcResult{
		LineItems: []entity.LineItem{
			{Name: calc.LineTaxableBase, Amount: dec(base)},
			{Name: calc.LineTotal, Amount: dec(total)},
		},
		Total:      dec(total),
		Provenance: provenance,
		Attempt:    1,
	}
}

func facts(items map[string]string) *entity.FinancialFacts {
	f := &entity.FinancialFacts{Items: map[string]decimal.Decimal{}}
	for k, v := range items {
		f.Items[k] = dec(v)
	}
	return f
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		result       *entity.CalcResult
		facts        *entity.FinancialFacts
		wantScore    float64
		wantConcerns int
	}{
		{
			name:      "clean flat rate",
			result:    result("1000000", "100000", entity.ProvenanceLive),
			facts:     facts(map[string]string{"revenue": "1000000"}),
			wantScore: 1.0,
		},
		{
			name:         "mock provenance",
			result:       result("1000000", "100000", entity.ProvenanceMock),
			facts:        facts(map[string]string{"revenue": "1000000"}),
			wantScore:    0.9,
			wantConcerns: 1,
		},
		{
			name:         "low effective rate",
			result:       result("1000000", "10000", entity.ProvenanceLive),
			facts:        facts(map[string]string{"revenue": "1000000"}),
			wantScore:    0.9,
			wantConcerns: 1,
		},
		{
			name:         "high rate and over half of operating income",
			result:       result("1000", "400", entity.ProvenanceCached),
			facts:        facts(map[string]string{"revenue": "100000", "operating_income": "500"}),
			wantScore:    0.64,
			wantConcerns: 2,
		},
		{
			name:         "negative total and base above twice revenue",
			result:       result("500", "-10", entity.ProvenanceLive),
			facts:        facts(map[string]string{"revenue": "100"}),
			wantScore:    0.315,
			wantConcerns: 3,
		},
	}

	ev := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ev.Evaluate(tt.result, tt.facts)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Len(t, got.Concerns, tt.wantConcerns)
		})
	}
}

func TestEvaluate_MissingFactsScoresZero(t *testing.T) {
	r := result("0", "0", entity.ProvenanceLive)
	r.MissingFacts = []string{"revenue"}

	ev := New()
	got := ev.Evaluate(r, facts(nil))
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, []string{"revenue"}, got.MissingFacts)
	assert.Equal(t, DecisionFail, ev.Decide(got))
}

func TestDecide_Boundaries(t *testing.T) {
	ev := New(WithHigh(0.8), WithLow(0.5), WithMaxRetries(1))

	tests := []struct {
		name    string
		score   float64
		attempt int
		want    Decision
	}{
		{"exactly high accepts", 0.8, 1, DecisionAccept},
		{"just below high retries", 0.7999, 1, DecisionRetry},
		{"exactly low retries", 0.5, 1, DecisionRetry},
		{"just below low fails", 0.4999, 1, DecisionFail},
		{"retry ceiling reached", 0.6, 2, DecisionFail},
		{"above high on last attempt accepts", 0.95, 2, DecisionAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Decide(Evaluation{Score: tt.score, Attempt: tt.attempt}))
		})
	}
}

func TestDecide_ZeroRetries(t *testing.T) {
	ev := New(WithMaxRetries(0))
	assert.Equal(t, DecisionFail, ev.Decide(Evaluation{Score: 0.6, Attempt: 1}))
}

func TestNew_ClampsInvertedThresholds(t *testing.T) {
	ev := New(WithHigh(0.6), WithLow(0.9))
	assert.Equal(t, 0.6, ev.Options().Low)
}

func TestEffectiveRate(t *testing.T) {
	assert.Equal(t, "0.1", EffectiveRate(result("1000000", "100000", entity.ProvenanceLive)).String())
	assert.True(t, EffectiveRate(result("0", "0", entity.ProvenanceLive)).IsZero())
}
