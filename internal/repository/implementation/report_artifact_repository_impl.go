package implementation

import (
	"context"
	"errors"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/mapper"
	"corp-tax-agent-be/internal/model"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportArtifactRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ReportMapper
}

func NewReportArtifactRepository(db *gorm.DB) contract.ReportArtifactRepository {
	return &ReportArtifactRepositoryImpl{
		db:     db,
		mapper: mapper.NewReportMapper(),
	}
}

func (r *ReportArtifactRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ReportArtifactRepositoryImpl) Create(ctx context.Context, artifact *entity.ReportArtifact) error {
	if artifact.Id == uuid.Nil {
		artifact.Id = uuid.New()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	m := r.mapper.ToModel(artifact)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*artifact = *r.mapper.ToEntity(m)
	return nil
}

func (r *ReportArtifactRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ReportArtifact, error) {
	var m model.ReportArtifact
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ReportArtifactRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ReportArtifact{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
