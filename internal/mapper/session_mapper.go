package mapper

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) SessionToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}
	return &entity.Session{
		Id:           s.Id,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}

func (m *SessionMapper) SessionToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}
	return &model.Session{
		Id:           s.Id,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}

func (m *SessionMapper) TurnToEntity(t *model.Turn) *entity.Turn {
	if t == nil {
		return nil
	}
	return &entity.Turn{
		Id:           t.Id,
		SessionId:    t.SessionId,
		Seq:          t.Seq,
		Role:         entity.TurnRole(t.Role),
		Text:         t.Text,
		CalcResultId: t.CalcResultId,
		ErrorKind:    t.ErrorKind,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *SessionMapper) TurnToModel(t *entity.Turn) *model.Turn {
	if t == nil {
		return nil
	}
	return &model.Turn{
		Id:           t.Id,
		SessionId:    t.SessionId,
		Seq:          t.Seq,
		Role:         string(t.Role),
		Text:         t.Text,
		CalcResultId: t.CalcResultId,
		ErrorKind:    t.ErrorKind,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *SessionMapper) TurnsToEntities(models []*model.Turn) []*entity.Turn {
	entities := make([]*entity.Turn, len(models))
	for i, t := range models {
		entities[i] = m.TurnToEntity(t)
	}
	return entities
}
