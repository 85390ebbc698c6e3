package implementation

import (
	"context"
	"errors"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/mapper"
	"corp-tax-agent-be/internal/model"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParameterSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SnapshotMapper
}

func NewParameterSnapshotRepository(db *gorm.DB) contract.ParameterSnapshotRepository {
	return &ParameterSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewSnapshotMapper(),
	}
}

func (r *ParameterSnapshotRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ParameterSnapshotRepositoryImpl) Create(ctx context.Context, snapshot *entity.ParameterSnapshot) error {
	if snapshot.Id == uuid.Nil {
		snapshot.Id = uuid.New()
	}
	m := r.mapper.ToModel(snapshot)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return contract.ErrDuplicateVersion
		}
		return err
	}
	*snapshot = *r.mapper.ToEntity(m)
	return nil
}

func (r *ParameterSnapshotRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ParameterSnapshot, error) {
	var m model.ParameterSnapshot
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ParameterSnapshotRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ParameterSnapshot, error) {
	var models []*model.ParameterSnapshot
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
