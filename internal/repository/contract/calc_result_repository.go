package contract

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CalcResultRepository interface {
	Create(ctx context.Context, result *entity.CalcResult) error
	// Finalize moves a pending result to a terminal status. Terminal results
	// are never touched again; finalizing one returns ErrResultNotPending.
	Finalize(ctx context.Context, id uuid.UUID, status entity.CalcStatus, confidence float64, concerns []string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CalcResult, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CalcResult, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
