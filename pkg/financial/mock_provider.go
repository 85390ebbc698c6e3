package financial

import (
	"context"

	"corp-tax-agent-be/internal/entity"

	"github.com/shopspring/decimal"
)

type mockCompany struct {
	name            string
	revenue         int64
	operatingIncome int64
	netIncome       int64
}

// Demo figures. Not real filings.
var mockCompanies = map[string]mockCompany{
	"ACME":     {name: "ACME Corp", revenue: 1_000_000, operatingIncome: 300_000, netIncome: 240_000},
	"00126380": {name: "Samsung Electronics", revenue: 258_000_000_000_000, operatingIncome: 35_000_000_000_000, netIncome: 25_000_000_000_000},
	"00164779": {name: "SK hynix", revenue: 55_000_000_000_000, operatingIncome: 5_000_000_000_000, netIncome: 3_000_000_000_000},
}

var defaultMock = mockCompany{
	revenue:         1_000_000_000_000,
	operatingIncome: 100_000_000_000,
	netIncome:       80_000_000_000,
}

// MockProvider returns deterministic demo data tagged with mock provenance.
// It never fails.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Fetch(_ context.Context, subject, period string) (*entity.FinancialFacts, error) {
	c, ok := mockCompanies[subject]
	if !ok {
		c = defaultMock
		c.name = subject
	}
	return &entity.FinancialFacts{
		Subject:     subject,
		Period:      period,
		SubjectName: c.name,
		Items: map[string]decimal.Decimal{
			entity.ItemRevenue:         decimal.NewFromInt(c.revenue),
			entity.ItemOperatingIncome: decimal.NewFromInt(c.operatingIncome),
			entity.ItemNetIncome:       decimal.NewFromInt(c.netIncome),
		},
		Provenance: entity.ProvenanceMock,
	}, nil
}
