package retrieval

import (
	"context"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxComparisonRows caps the comparison table.
const MaxComparisonRows = 5

type ComparisonRow struct {
	DocumentId      uuid.UUID
	CalcResultId    uuid.UUID
	Subject         string
	Period          string
	SnapshotVersion string
	Provenance      entity.Provenance
	Total           decimal.Decimal
	// ChangePct is the change from this row to the reference, in percent.
	// Nil when the row's total is zero.
	ChangePct *decimal.Decimal
	Score     float64
	CreatedAt time.Time
}

// Comparison lists past results next to a reference result.
type Comparison struct {
	Reference *entity.CalcResult
	Rows      []ComparisonRow
}

func (c *Comparison) Empty() bool {
	return c == nil || len(c.Rows) == 0
}

// Compare searches past documents of subject and lines them up against
// reference. With a nil reference the best-ranked row becomes the reference.
// Hybrid search is used; it degrades to exact ranking when embedding fails.
func (s *Store) Compare(ctx context.Context, subject, query string, reference *entity.CalcResult) (*Comparison, error) {
	var opts []SearchOption
	if subject != "" {
		opts = append(opts, WithSubject(subject))
	}
	scored, err := s.Search(ctx, query, MaxComparisonRows+1, ModeHybrid, opts...)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(scored))
	for _, sd := range scored {
		ids = append(ids, sd.Document.CalcResultId)
	}

	byID := make(map[uuid.UUID]*entity.CalcResult, len(ids))
	if len(ids) > 0 {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		results, err := uow.CalcResultRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			byID[r.Id] = r
		}
	}

	cmp := &Comparison{Reference: reference}
	for _, sd := range scored {
		past, ok := byID[sd.Document.CalcResultId]
		if !ok {
			continue
		}
		if reference != nil && past.Id == reference.Id {
			continue
		}
		if cmp.Reference == nil {
			cmp.Reference = past
		}
		if len(cmp.Rows) == MaxComparisonRows {
			break
		}
		cmp.Rows = append(cmp.Rows, ComparisonRow{
			DocumentId:      sd.Document.Id,
			CalcResultId:    past.Id,
			Subject:         past.Subject,
			Period:          past.Period,
			SnapshotVersion: past.SnapshotVersion,
			Provenance:      past.Provenance,
			Total:           past.Total,
			ChangePct:       changePct(past.Total, cmp.Reference.Total),
			Score:           sd.Score,
			CreatedAt:       sd.Document.CreatedAt,
		})
	}
	return cmp, nil
}

// changePct is (to - from) / from * 100 rounded to two places.
func changePct(from, to decimal.Decimal) *decimal.Decimal {
	if from.IsZero() {
		return nil
	}
	pct := to.Sub(from).Div(from).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}
