package service

import (
	"context"

	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/tax/snapshot"
)

type ISnapshotService interface {
	Create(ctx context.Context, req *dto.CreateSnapshotRequest) (*dto.SnapshotResponse, error)
	List(ctx context.Context) ([]*dto.SnapshotResponse, error)
}

type snapshotService struct {
	loader *snapshot.Loader
}

func NewSnapshotService(loader *snapshot.Loader) ISnapshotService {
	return &snapshotService{loader: loader}
}

func (s *snapshotService) Create(ctx context.Context, req *dto.CreateSnapshotRequest) (*dto.SnapshotResponse, error) {
	def := &snapshot.Definition{
		Version:       req.Version,
		Formula:       req.Formula,
		Description:   req.Description,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	}
	for _, p := range req.Parameters {
		def.Parameters = append(def.Parameters, entity.Parameter{Name: p.Name, Value: p.Value})
	}

	snap, err := def.ToEntity()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "snapshot.Create", err)
	}
	if err := s.loader.Create(ctx, snap); err != nil {
		return nil, err
	}
	return toSnapshotResponse(snap), nil
}

func (s *snapshotService) List(ctx context.Context) ([]*dto.SnapshotResponse, error) {
	snaps, err := s.loader.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		res = append(res, toSnapshotResponse(snap))
	}
	return res, nil
}

func toSnapshotResponse(snap *entity.ParameterSnapshot) *dto.SnapshotResponse {
	def := snapshot.FromEntity(snap)
	res := &dto.SnapshotResponse{
		Id:            snap.Id,
		Version:       def.Version,
		Formula:       def.Formula,
		Description:   def.Description,
		EffectiveFrom: def.EffectiveFrom,
		EffectiveTo:   def.EffectiveTo,
		Parameters:    make([]dto.SnapshotParameterDTO, 0, len(def.Parameters)),
		CreatedAt:     snap.CreatedAt,
	}
	for _, p := range def.Parameters {
		res.Parameters = append(res.Parameters, dto.SnapshotParameterDTO{Name: p.Name, Value: p.Value})
	}
	return res
}
