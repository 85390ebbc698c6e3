package memory

import (
	"context"
	"time"

	"corp-tax-agent-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// FactsStore is the in-process tier of the financial-data cache.
type FactsStore struct {
	cache *cache.Cache
}

// NewFactsStore keeps entries for ttl and purges expired items every cleanup interval.
// Freshness is decided by the caller from FetchedAt; ttl only bounds memory.
func NewFactsStore(ttl, cleanup time.Duration) *FactsStore {
	return &FactsStore{
		cache: cache.New(ttl, cleanup),
	}
}

func (s *FactsStore) Name() string {
	return "memory"
}

func (s *FactsStore) Get(_ context.Context, subject, period string) (*entity.FinancialFacts, bool, error) {
	if x, found := s.cache.Get(factsKey(subject, period)); found {
		return x.(*entity.FinancialFacts).Clone(), true, nil
	}
	return nil, false, nil
}

func (s *FactsStore) Put(_ context.Context, facts *entity.FinancialFacts) error {
	s.cache.Set(factsKey(facts.Subject, facts.Period), facts.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *FactsStore) Delete(subject, period string) {
	s.cache.Delete(factsKey(subject, period))
}

func factsKey(subject, period string) string {
	return subject + "|" + period
}
