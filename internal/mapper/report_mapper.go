package mapper

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"
)

type ReportMapper struct{}

func NewReportMapper() *ReportMapper {
	return &ReportMapper{}
}

func (m *ReportMapper) ToEntity(a *model.ReportArtifact) *entity.ReportArtifact {
	if a == nil {
		return nil
	}
	return &entity.ReportArtifact{
		Id:             a.Id,
		CalcResultId:   a.CalcResultId,
		StorageBackend: a.StorageBackend,
		StorageHandle:  a.StorageHandle,
		Checksum:       a.Checksum,
		SizeBytes:      a.SizeBytes,
		CreatedAt:      a.CreatedAt,
	}
}

func (m *ReportMapper) ToModel(a *entity.ReportArtifact) *model.ReportArtifact {
	if a == nil {
		return nil
	}
	return &model.ReportArtifact{
		Id:             a.Id,
		CalcResultId:   a.CalcResultId,
		StorageBackend: a.StorageBackend,
		StorageHandle:  a.StorageHandle,
		Checksum:       a.Checksum,
		SizeBytes:      a.SizeBytes,
		CreatedAt:      a.CreatedAt,
	}
}
