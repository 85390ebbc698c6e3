package contract

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"
)

type ReportArtifactRepository interface {
	Create(ctx context.Context, artifact *entity.ReportArtifact) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ReportArtifact, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
