package unitofwork

import (
	"context"

	"corp-tax-agent-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	TurnRepository() contract.TurnRepository
	ParameterSnapshotRepository() contract.ParameterSnapshotRepository
	FinancialFactsRepository() contract.FinancialFactsRepository
	CalcResultRepository() contract.CalcResultRepository
	ReportArtifactRepository() contract.ReportArtifactRepository
	RetrievalDocumentRepository() contract.RetrievalDocumentRepository
}
