package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/mapper"
	"corp-tax-agent-be/internal/model"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CalcResultRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CalcResultMapper
}

func NewCalcResultRepository(db *gorm.DB) contract.CalcResultRepository {
	return &CalcResultRepositoryImpl{
		db:     db,
		mapper: mapper.NewCalcResultMapper(),
	}
}

func (r *CalcResultRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CalcResultRepositoryImpl) Create(ctx context.Context, result *entity.CalcResult) error {
	if result.Id == uuid.Nil {
		result.Id = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	m := r.mapper.ToModel(result)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*result = *r.mapper.ToEntity(m)
	return nil
}

func (r *CalcResultRepositoryImpl) Finalize(ctx context.Context, id uuid.UUID, status entity.CalcStatus, confidence float64, concerns []string) error {
	if concerns == nil {
		concerns = []string{}
	}
	raw, err := json.Marshal(concerns)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Model(&model.CalcResult{}).
		Where("id = ? AND status = ?", id, string(entity.CalcStatusPending)).
		Updates(map[string]interface{}{
			"status":     string(status),
			"confidence": confidence,
			"concerns":   datatypes.JSON(raw),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contract.ErrResultNotPending
	}
	return nil
}

func (r *CalcResultRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CalcResult, error) {
	var m model.CalcResult
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CalcResultRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CalcResult, error) {
	var models []*model.CalcResult
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CalcResultRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CalcResult{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
