package calc

import (
	"errors"
	"testing"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/apperror"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flatSnapshot(rate string) *entity.ParameterSnapshot {
	return &entity.ParameterSnapshot{
		Version:       "flat-10",
		Formula:       "flat_rate",
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Parameters: []entity.Parameter{
			{Name: "base_item", Value: "revenue"},
			{Name: "rate", Value: rate},
		},
	}
}

func templateSnapshot() *entity.ParameterSnapshot {
	return &entity.ParameterSnapshot{
		Version:       "v0.1-local-template",
		Formula:       "corporate_progressive",
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Parameters: []entity.Parameter{
			{Name: "taxable_ratio", Value: "0.8"},
			{Name: "bracket_1_threshold", Value: "200000000"},
			{Name: "bracket_1_rate", Value: "0.10"},
			{Name: "bracket_2_threshold", Value: "20000000000"},
			{Name: "bracket_2_rate", Value: "0.20"},
			{Name: "bracket_3_threshold", Value: "300000000000"},
			{Name: "bracket_3_rate", Value: "0.22"},
			{Name: "bracket_4_threshold", Value: "inf"},
			{Name: "bracket_4_rate", Value: "0.25"},
			{Name: "surtax_rate", Value: "0.10"},
		},
	}
}

func acmeFacts() *entity.FinancialFacts {
	return &entity.FinancialFacts{
		Id:         uuid.MustParse("7b0c1b8e-6f57-4f3e-9d44-2f7f0e6a1c11"),
		Subject:    "ACME",
		Period:     "2023",
		Items:      map[string]decimal.Decimal{entity.ItemRevenue: dec("1000000")},
		Provenance: entity.ProvenanceLive,
	}
}

func TestEngine_FlatRateAcme(t *testing.T) {
	result, err := NewEngine().Compute(acmeFacts(), flatSnapshot("0.10"))
	require.NoError(t, err)

	assert.True(t, dec("100000").Equal(result.Total), "total = %s", result.Total)
	assert.Equal(t, entity.CalcStatusPending, result.Status)
	assert.Equal(t, "flat-10", result.SnapshotVersion)
	assert.Empty(t, result.MissingFacts)

	base, ok := result.LineItem(LineTaxableBase)
	require.True(t, ok)
	assert.True(t, dec("1000000").Equal(base))
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewEngine()

	inputs := []struct {
		name     string
		snapshot *entity.ParameterSnapshot
	}{
		{"flat", flatSnapshot("0.1")},
		{"progressive", templateSnapshot()},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			facts := acmeFacts()
			facts.Items[entity.ItemOperatingIncome] = dec("123456789.5")

			a, err := engine.Compute(facts, in.snapshot)
			require.NoError(t, err)
			b, err := engine.Compute(facts.Clone(), in.snapshot)
			require.NoError(t, err)

			if diff := cmp.Diff(a, b); diff != "" {
				t.Fatalf("results differ (-a +b):\n%s", diff)
			}
			for i := range a.LineItems {
				assert.Equal(t, a.LineItems[i].Amount.String(), b.LineItems[i].Amount.String())
			}
		})
	}
}

func TestEngine_RoundsHalfUp(t *testing.T) {
	facts := acmeFacts()
	facts.Items[entity.ItemRevenue] = dec("123456.75")

	// 123456.75 * 0.1 = 12345.675 -> 12346
	result, err := NewEngine().Compute(facts, flatSnapshot("0.1"))
	require.NoError(t, err)
	assert.Equal(t, "12346", result.Total.String())

	facts.Items[entity.ItemRevenue] = dec("1234567.5")
	// 1234567.5 * 0.01 = 12345.675 -> 12346
	result, err = NewEngine().Compute(facts, flatSnapshot("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "12346", result.Total.String())
}

func TestEngine_FlatRateRoundsOnce(t *testing.T) {
	tests := []struct {
		name      string
		revenue   string
		rate      string
		wantBase  string
		wantTotal string
	}{
		// rounding the base first would give 1 * 2.5 = 2.5 -> 3
		{name: "fractional base", revenue: "1.4", rate: "2.5", wantBase: "1", wantTotal: "4"},
		{name: "half up on product", revenue: "5", rate: "0.1", wantBase: "5", wantTotal: "1"},
		{name: "base rounds up for display", revenue: "10.5", rate: "0.1", wantBase: "11", wantTotal: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := acmeFacts()
			facts.Items[entity.ItemRevenue] = dec(tt.revenue)

			result, err := NewEngine().Compute(facts, flatSnapshot(tt.rate))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, result.Total.String())

			var base string
			for _, li := range result.LineItems {
				if li.Name == LineTaxableBase {
					base = li.Amount.String()
				}
			}
			assert.Equal(t, tt.wantBase, base)
		})
	}
}

func TestEngine_Progressive(t *testing.T) {
	facts := &entity.FinancialFacts{
		Subject: "00000000",
		Period:  "2023",
		Items: map[string]decimal.Decimal{
			entity.ItemRevenue:         dec("1000000000000"),
			entity.ItemOperatingIncome: dec("100000000000"),
			entity.ItemNetIncome:       dec("80000000000"),
		},
		Provenance: entity.ProvenanceMock,
	}

	result, err := NewEngine().Compute(facts, templateSnapshot())
	require.NoError(t, err)

	// taxable = 80,000,000,000
	// 200M*0.10 + (20B-200M)*0.20 + (80B-20B)*0.22 = 20M + 3.96B + 13.2B = 17,180,000,000
	taxable, _ := result.LineItem(LineTaxableBase)
	corp, _ := result.LineItem(LineCorpTax)
	surtax, _ := result.LineItem(LineSurtax)

	assert.Equal(t, "80000000000", taxable.String())
	assert.Equal(t, "17180000000", corp.String())
	assert.Equal(t, "1718000000", surtax.String())
	assert.Equal(t, "18898000000", result.Total.String())
	assert.Equal(t, entity.ProvenanceMock, result.Provenance)
}

func TestEngine_ProgressiveFallsBackToNetIncome(t *testing.T) {
	facts := &entity.FinancialFacts{
		Subject: "X",
		Period:  "2023",
		Items: map[string]decimal.Decimal{
			entity.ItemOperatingIncome: dec("-5"),
			entity.ItemNetIncome:       dec("100000000"),
		},
	}
	result, err := NewEngine().Compute(facts, templateSnapshot())
	require.NoError(t, err)

	taxable, _ := result.LineItem(LineTaxableBase)
	assert.Equal(t, "80000000", taxable.String())
	assert.Equal(t, "8800000", result.Total.String())
}

func TestEngine_MissingParameters(t *testing.T) {
	snapshot := templateSnapshot()
	snapshot.Parameters = []entity.Parameter{
		{Name: "bracket_1_rate", Value: "0.1"},
		{Name: "bracket_2_rate", Value: "0.2"},
	}

	_, err := NewEngine().Compute(acmeFacts(), snapshot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ParameterMissing))

	var missing *MissingParametersError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"taxable_ratio", "surtax_rate", "bracket_1_threshold"}, missing.Names)
}

func TestEngine_MissingFactIsRecorded(t *testing.T) {
	facts := acmeFacts()
	facts.Items = map[string]decimal.Decimal{}

	result, err := NewEngine().Compute(facts, flatSnapshot("0.1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue"}, result.MissingFacts)
	assert.True(t, result.Total.IsZero())
}

func TestEngine_UnknownFormula(t *testing.T) {
	snapshot := flatSnapshot("0.1")
	snapshot.Formula = "vat"

	_, err := NewEngine().Compute(acmeFacts(), snapshot)
	assert.True(t, apperror.IsKind(err, apperror.KindParameterMissing))
}

func TestNewEngine_DuplicateFormulaPanics(t *testing.T) {
	assert.Panics(t, func() { NewEngine(FlatRate{}, FlatRate{}) })
}

func TestTaxByBrackets(t *testing.T) {
	hundred := dec("100")
	brackets := []Bracket{{Threshold: &hundred, Rate: dec("0.1")}, {Rate: dec("0.5")}}

	tests := []struct {
		income string
		want   string
	}{
		{"0", "0"},
		{"-10", "0"},
		{"50", "5"},
		{"100", "10"},
		{"150", "35"},
	}
	for _, tt := range tests {
		t.Run(tt.income, func(t *testing.T) {
			got := TaxByBrackets(dec(tt.income), brackets)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}
