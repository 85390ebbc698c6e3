package mapper

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"
)

type FinancialFactsMapper struct{}

func NewFinancialFactsMapper() *FinancialFactsMapper {
	return &FinancialFactsMapper{}
}

func (m *FinancialFactsMapper) ToEntity(f *model.FinancialFacts) *entity.FinancialFacts {
	if f == nil {
		return nil
	}
	return &entity.FinancialFacts{
		Id:          f.Id,
		Subject:     f.Subject,
		Period:      f.Period,
		SubjectName: f.SubjectName,
		Items:       decimalMapFromJSON(f.Items),
		Provenance:  entity.Provenance(f.Provenance),
		FetchedAt:   f.FetchedAt,
	}
}

func (m *FinancialFactsMapper) ToModel(f *entity.FinancialFacts) *model.FinancialFacts {
	if f == nil {
		return nil
	}
	return &model.FinancialFacts{
		Id:          f.Id,
		Subject:     f.Subject,
		Period:      f.Period,
		SubjectName: f.SubjectName,
		Items:       decimalMapToJSON(f.Items),
		Provenance:  string(f.Provenance),
		FetchedAt:   f.FetchedAt,
	}
}
