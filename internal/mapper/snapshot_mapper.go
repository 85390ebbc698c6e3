package mapper

import (
	"encoding/json"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"

	"gorm.io/datatypes"
)

type SnapshotMapper struct{}

func NewSnapshotMapper() *SnapshotMapper {
	return &SnapshotMapper{}
}

func (m *SnapshotMapper) ToEntity(s *model.ParameterSnapshot) *entity.ParameterSnapshot {
	if s == nil {
		return nil
	}
	params := []entity.Parameter{}
	if len(s.Parameters) > 0 {
		_ = json.Unmarshal(s.Parameters, &params)
	}
	return &entity.ParameterSnapshot{
		Id:            s.Id,
		Version:       s.Version,
		Formula:       s.Formula,
		Description:   s.Description,
		EffectiveFrom: s.EffectiveFrom,
		EffectiveTo:   s.EffectiveTo,
		Parameters:    params,
		CreatedAt:     s.CreatedAt,
	}
}

func (m *SnapshotMapper) ToModel(s *entity.ParameterSnapshot) *model.ParameterSnapshot {
	if s == nil {
		return nil
	}
	params := s.Parameters
	if params == nil {
		params = []entity.Parameter{}
	}
	b, _ := json.Marshal(params)
	return &model.ParameterSnapshot{
		Id:            s.Id,
		Version:       s.Version,
		Formula:       s.Formula,
		Description:   s.Description,
		EffectiveFrom: s.EffectiveFrom,
		EffectiveTo:   s.EffectiveTo,
		Parameters:    datatypes.JSON(b),
		CreatedAt:     s.CreatedAt,
	}
}

func (m *SnapshotMapper) ToEntities(models []*model.ParameterSnapshot) []*entity.ParameterSnapshot {
	entities := make([]*entity.ParameterSnapshot, len(models))
	for i, s := range models {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
