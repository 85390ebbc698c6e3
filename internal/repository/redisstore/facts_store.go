package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corp-tax-agent-be/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "taxagent:facts:"

// FactsStore is the shared tier of the financial-data cache, visible to every
// instance pointed at the same Redis.
type FactsStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFactsStore(rdb *redis.Client, ttl time.Duration) *FactsStore {
	return &FactsStore{rdb: rdb, ttl: ttl}
}

type factsPayload struct {
	Id          uuid.UUID         `json:"id"`
	Subject     string            `json:"subject"`
	Period      string            `json:"period"`
	SubjectName string            `json:"subject_name"`
	Items       map[string]string `json:"items"`
	Provenance  string            `json:"provenance"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

func (s *FactsStore) Name() string {
	return "redis"
}

func (s *FactsStore) Get(ctx context.Context, subject, period string) (*entity.FinancialFacts, bool, error) {
	raw, err := s.rdb.Get(ctx, key(subject, period)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get facts: %w", err)
	}

	var p factsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("decode cached facts: %w", err)
	}

	items := make(map[string]decimal.Decimal, len(p.Items))
	for k, v := range p.Items {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, false, fmt.Errorf("decode cached item %s: %w", k, err)
		}
		items[k] = d
	}

	return &entity.FinancialFacts{
		Id:          p.Id,
		Subject:     p.Subject,
		Period:      p.Period,
		SubjectName: p.SubjectName,
		Items:       items,
		Provenance:  entity.Provenance(p.Provenance),
		FetchedAt:   p.FetchedAt,
	}, true, nil
}

func (s *FactsStore) Put(ctx context.Context, facts *entity.FinancialFacts) error {
	items := make(map[string]string, len(facts.Items))
	for k, v := range facts.Items {
		items[k] = v.String()
	}
	raw, err := json.Marshal(factsPayload{
		Id:          facts.Id,
		Subject:     facts.Subject,
		Period:      facts.Period,
		SubjectName: facts.SubjectName,
		Items:       items,
		Provenance:  string(facts.Provenance),
		FetchedAt:   facts.FetchedAt,
	})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(facts.Subject, facts.Period), raw, s.ttl).Err()
}

func key(subject, period string) string {
	return keyPrefix + subject + ":" + period
}
