package contract

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RetrievalFilter struct {
	Subject string
}

type RetrievalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.RetrievalDocument) error
	CreateTerms(ctx context.Context, terms []entity.RetrievalTerm) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RetrievalDocument, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.RetrievalDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountTerms(ctx context.Context) (int64, error)

	// SearchExact scores documents by the share of distinct query terms they contain.
	SearchExact(ctx context.Context, terms []string, limit int, filter RetrievalFilter) ([]*entity.ScoredDocument, error)
	// SearchSimilar scores documents by cosine similarity to the query vector.
	SearchSimilar(ctx context.Context, vector []float32, limit int, filter RetrievalFilter) ([]*entity.ScoredDocument, error)
}
