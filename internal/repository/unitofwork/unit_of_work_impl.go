package unitofwork

import (
	"context"
	"fmt"

	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback is a no-op after Commit so it can always be deferred.
func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) SessionRepository() contract.SessionRepository {
	return implementation.NewSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) TurnRepository() contract.TurnRepository {
	return implementation.NewTurnRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ParameterSnapshotRepository() contract.ParameterSnapshotRepository {
	return implementation.NewParameterSnapshotRepository(u.getDB())
}

func (u *UnitOfWorkImpl) FinancialFactsRepository() contract.FinancialFactsRepository {
	return implementation.NewFinancialFactsRepository(u.getDB())
}

func (u *UnitOfWorkImpl) CalcResultRepository() contract.CalcResultRepository {
	return implementation.NewCalcResultRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ReportArtifactRepository() contract.ReportArtifactRepository {
	return implementation.NewReportArtifactRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RetrievalDocumentRepository() contract.RetrievalDocumentRepository {
	return implementation.NewRetrievalDocumentRepository(u.getDB())
}
