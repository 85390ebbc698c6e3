package financial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/pkg/apperror"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	StalenessWindow time.Duration
	// Timeout bounds each provider call.
	Timeout time.Duration
	// MockFallback serves mock facts when the provider is absent or unreachable.
	MockFallback bool
}

type GetOptions struct {
	// BypassCache ignores every tier and asks the provider directly.
	BypassCache bool
}

// Cache answers get(subject, period) from the first tier holding fresh facts
// and falls through to the provider otherwise. Tiers are consulted in the
// order given; provider answers are written back to all of them.
type Cache struct {
	provider Provider
	mock     Provider
	tiers    []Store
	opts     Options
	group    singleflight.Group
	logger   logger.ILogger
	now      func() time.Time
}

// NewCache builds a cache. provider may be nil, in which case every miss is
// served by the mock fallback or fails with DataUnavailable.
func NewCache(provider Provider, opts Options, logger logger.ILogger, tiers ...Store) *Cache {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Cache{
		provider: provider,
		mock:     NewMockProvider(),
		tiers:    tiers,
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the cache's notion of "now".
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Get(ctx context.Context, subject, period string, opts GetOptions) (*entity.FinancialFacts, error) {
	if subject == "" || period == "" {
		return nil, apperror.New(apperror.KindValidation, "financial.Get", "subject and period are required")
	}

	if !opts.BypassCache {
		if facts, ok := c.lookup(ctx, subject, period); ok {
			return facts, nil
		}
	}

	// Concurrent misses for one key share a single provider call. The shared
	// call is detached from the caller that started it; each caller stops
	// waiting on its own context only.
	ch := c.group.DoChan(subject+"|"+period, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), subject, period)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("FETCH", "Joined in-flight provider call", map[string]interface{}{
				"subject": subject,
				"period":  period,
			})
		}
		return res.Val.(*entity.FinancialFacts).Clone(), nil
	}
}

func (c *Cache) lookup(ctx context.Context, subject, period string) (*entity.FinancialFacts, bool) {
	for i, tier := range c.tiers {
		facts, found, err := tier.Get(ctx, subject, period)
		if err != nil {
			c.logger.Warn("FETCH", "Cache tier read failed", map[string]interface{}{
				"tier":  tier.Name(),
				"error": err.Error(),
			})
			continue
		}
		if !found || !c.fresh(facts) {
			continue
		}

		for _, upper := range c.tiers[:i] {
			if err := upper.Put(ctx, facts); err != nil {
				c.logger.Warn("FETCH", "Cache backfill failed", map[string]interface{}{
					"tier":  upper.Name(),
					"error": err.Error(),
				})
			}
		}

		hit := facts.Clone()
		hit.Provenance = entity.ProvenanceCached
		c.logger.Debug("FETCH", "Cache hit", map[string]interface{}{
			"tier":    tier.Name(),
			"subject": subject,
			"period":  period,
		})
		return hit, true
	}
	return nil, false
}

func (c *Cache) fresh(facts *entity.FinancialFacts) bool {
	return c.now().Sub(facts.FetchedAt) <= c.opts.StalenessWindow
}

func (c *Cache) fetch(ctx context.Context, subject, period string) (*entity.FinancialFacts, error) {
	if c.provider == nil {
		return c.fallback(ctx, subject, period, errors.New("no provider configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	facts, err := c.provider.Fetch(callCtx, subject, period)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return nil, apperror.Wrap(apperror.KindTimeout, "financial.Fetch", fmt.Errorf("%s: %w", c.provider.Name(), err))
		case errors.Is(err, context.Canceled):
			return nil, err
		case errors.Is(err, ErrNoData):
			return nil, apperror.Wrap(apperror.KindDataUnavailable, "financial.Fetch", err)
		default:
			return c.fallback(ctx, subject, period, err)
		}
	}

	facts.Subject = subject
	facts.Period = period
	facts.Provenance = entity.ProvenanceLive
	facts.FetchedAt = c.now()
	c.store(ctx, facts)

	c.logger.Info("FETCH", "Provider fetch stored", map[string]interface{}{
		"provider": c.provider.Name(),
		"subject":  subject,
		"period":   period,
	})
	return facts, nil
}

// store writes back from the most durable tier up, so faster tiers receive
// the id the database assigned.
func (c *Cache) store(ctx context.Context, facts *entity.FinancialFacts) {
	for i := len(c.tiers) - 1; i >= 0; i-- {
		if err := c.tiers[i].Put(ctx, facts); err != nil {
			c.logger.Warn("FETCH", "Cache tier write failed", map[string]interface{}{
				"tier":  c.tiers[i].Name(),
				"error": err.Error(),
			})
		}
	}
}

// fallback serves mock facts when allowed. Mock facts are never cached so a
// recovered provider is used on the next call.
func (c *Cache) fallback(ctx context.Context, subject, period string, cause error) (*entity.FinancialFacts, error) {
	if !c.opts.MockFallback {
		return nil, apperror.Wrap(apperror.KindDataUnavailable, "financial.Fetch", cause)
	}

	c.logger.Warn("FETCH", "Provider unavailable, serving mock data", map[string]interface{}{
		"subject": subject,
		"period":  period,
		"error":   cause.Error(),
	})
	facts, err := c.mock.Fetch(ctx, subject, period)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindDataUnavailable, "financial.Fetch", err)
	}
	facts.FetchedAt = c.now()
	return facts, nil
}
