package service

import (
	"context"
	"fmt"

	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/report"

	"github.com/google/uuid"
)

type IReportService interface {
	Download(ctx context.Context, reportId uuid.UUID) (*dto.ReportDownload, error)
}

type reportService struct {
	uowFactory   unitofwork.RepositoryFactory
	materializer *report.Materializer
}

func NewReportService(uowFactory unitofwork.RepositoryFactory, materializer *report.Materializer) IReportService {
	return &reportService{uowFactory: uowFactory, materializer: materializer}
}

func (s *reportService) Download(ctx context.Context, reportId uuid.UUID) (*dto.ReportDownload, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	artifact, err := uow.ReportArtifactRepository().FindOne(ctx, specification.ByID{ID: reportId})
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperror.New(apperror.KindNotFound, "report.Download", "report not found")
	}

	result, err := uow.CalcResultRepository().FindOne(ctx, specification.ByID{ID: artifact.CalcResultId})
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("report-%s.pdf", artifact.Id)
	if result != nil {
		name = fmt.Sprintf("corporate-tax-%s-%s.pdf", result.Subject, result.Period)
	}

	body, err := s.materializer.Open(ctx, artifact)
	if err != nil {
		return nil, err
	}
	return &dto.ReportDownload{
		FileName:  name,
		SizeBytes: artifact.SizeBytes,
		Checksum:  artifact.Checksum,
		Body:      body,
	}, nil
}
