package contract

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"
)

type FinancialFactsRepository interface {
	// Upsert writes facts keyed by (subject, period) and refreshes the entity
	// with the stored row.
	Upsert(ctx context.Context, facts *entity.FinancialFacts) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FinancialFacts, error)
}
