package contract

import (
	"context"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
}

// TurnRepository has no update or delete: a session's history is append-only.
type TurnRepository interface {
	Append(ctx context.Context, turn *entity.Turn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Turn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
