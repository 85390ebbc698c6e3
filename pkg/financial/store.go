package financial

import (
	"context"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
)

// Store is one cache tier. Tiers do not judge freshness; the Cache does.
type Store interface {
	Name() string
	Get(ctx context.Context, subject, period string) (*entity.FinancialFacts, bool, error)
	Put(ctx context.Context, facts *entity.FinancialFacts) error
}

// DurableStore is the database tier. Writes upsert by (subject, period) and
// assign the row id that calc results reference.
type DurableStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDurableStore(uowFactory unitofwork.RepositoryFactory) *DurableStore {
	return &DurableStore{uowFactory: uowFactory}
}

func (s *DurableStore) Name() string {
	return "database"
}

func (s *DurableStore) Get(ctx context.Context, subject, period string) (*entity.FinancialFacts, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	facts, err := uow.FinancialFactsRepository().FindOne(ctx,
		specification.BySubject{Subject: subject},
		specification.ByPeriod{Period: period},
	)
	if err != nil {
		return nil, false, err
	}
	return facts, facts != nil, nil
}

func (s *DurableStore) Put(ctx context.Context, facts *entity.FinancialFacts) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.FinancialFactsRepository().Upsert(ctx, facts)
}
