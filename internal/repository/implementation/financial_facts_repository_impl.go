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
	"gorm.io/gorm/clause"
)

type FinancialFactsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FinancialFactsMapper
}

func NewFinancialFactsRepository(db *gorm.DB) contract.FinancialFactsRepository {
	return &FinancialFactsRepositoryImpl{
		db:     db,
		mapper: mapper.NewFinancialFactsMapper(),
	}
}

func (r *FinancialFactsRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FinancialFactsRepositoryImpl) Upsert(ctx context.Context, facts *entity.FinancialFacts) error {
	if facts.Id == uuid.Nil {
		facts.Id = uuid.New()
	}
	m := r.mapper.ToModel(facts)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject_name", "items", "provenance", "fetched_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// the row id survives conflicts, so read back what is stored
	stored, err := r.FindOne(ctx, specification.BySubject{Subject: facts.Subject}, specification.ByPeriod{Period: facts.Period})
	if err != nil {
		return err
	}
	if stored != nil {
		*facts = *stored
	}
	return nil
}

func (r *FinancialFactsRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FinancialFacts, error) {
	var m model.FinancialFacts
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
