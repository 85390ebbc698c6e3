package mapper

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type RetrievalMapper struct{}

func NewRetrievalMapper() *RetrievalMapper {
	return &RetrievalMapper{}
}

func (m *RetrievalMapper) ToEntity(d *model.RetrievalDocument) *entity.RetrievalDocument {
	if d == nil {
		return nil
	}
	return &entity.RetrievalDocument{
		Id:           d.Id,
		CalcResultId: d.CalcResultId,
		Subject:      d.Subject,
		Period:       d.Period,
		Content:      d.Content,
		Embedding:    d.Embedding.Slice(),
		CreatedAt:    d.CreatedAt,
	}
}

func (m *RetrievalMapper) ToModel(d *entity.RetrievalDocument) *model.RetrievalDocument {
	if d == nil {
		return nil
	}
	return &model.RetrievalDocument{
		Id:           d.Id,
		CalcResultId: d.CalcResultId,
		Subject:      d.Subject,
		Period:       d.Period,
		Content:      d.Content,
		Embedding:    pgvector.NewVector(d.Embedding),
		CreatedAt:    d.CreatedAt,
	}
}

func (m *RetrievalMapper) TermToModel(t entity.RetrievalTerm) *model.RetrievalTerm {
	return &model.RetrievalTerm{
		DocumentId: t.DocumentId,
		Term:       t.Term,
		Frequency:  t.Frequency,
	}
}
