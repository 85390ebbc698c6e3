package financial

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"corp-tax-agent-be/internal/entity"

	"github.com/shopspring/decimal"
)

// StaticProvider serves facts registered in memory. It counts calls and can
// be told to fail or stall, which makes it the provider of choice for tests
// and offline CLI sessions.
type StaticProvider struct {
	mu    sync.RWMutex
	facts map[string]map[string]decimal.Decimal
	names map[string]string
	err   error
	delay time.Duration
	calls atomic.Int64
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		facts: make(map[string]map[string]decimal.Decimal),
		names: make(map[string]string),
	}
}

func (p *StaticProvider) Name() string {
	return "static"
}

// Set registers items for (subject, period), replacing earlier ones.
func (p *StaticProvider) Set(subject, period, name string, items map[string]decimal.Decimal) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := make(map[string]decimal.Decimal, len(items))
	for k, v := range items {
		copied[k] = v
	}
	p.facts[staticKey(subject, period)] = copied
	p.names[subject] = name
	return p
}

// FailWith makes every later Fetch return err. Pass nil to recover.
func (p *StaticProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Delay makes Fetch wait d (or until the context ends) before answering.
func (p *StaticProvider) Delay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

func (p *StaticProvider) Calls() int {
	return int(p.calls.Load())
}

func (p *StaticProvider) Fetch(ctx context.Context, subject, period string) (*entity.FinancialFacts, error) {
	p.calls.Add(1)

	p.mu.RLock()
	delay, failure := p.delay, p.err
	items, ok := p.facts[staticKey(subject, period)]
	name := p.names[subject]
	p.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, subject, period)
	}

	facts := &entity.FinancialFacts{
		Subject:     subject,
		Period:      period,
		SubjectName: name,
		Items:       make(map[string]decimal.Decimal, len(items)),
		Provenance:  entity.ProvenanceLive,
	}
	for k, v := range items {
		facts.Items[k] = v
	}
	return facts, nil
}

func staticKey(subject, period string) string {
	return subject + "|" + period
}
