package contract

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"
)

// ParameterSnapshotRepository is create/read only; snapshots are immutable.
type ParameterSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.ParameterSnapshot) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ParameterSnapshot, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ParameterSnapshot, error)
}
