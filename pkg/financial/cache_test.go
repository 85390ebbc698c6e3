package financial

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/memory"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func acmeProvider() *StaticProvider {
	return NewStaticProvider().Set("ACME", "2023", "ACME Corp", map[string]decimal.Decimal{
		entity.ItemRevenue: decimal.NewFromInt(1_000_000),
	})
}

func newDurable(t *testing.T) *DurableStore {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	return NewDurableStore(unitofwork.NewRepositoryFactory(db))
}

func newCache(t *testing.T, p Provider, opts Options) (*Cache, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	if opts.StalenessWindow == 0 {
		opts.StalenessWindow = time.Hour
	}
	c := NewCache(p, opts, logger.NewNopLogger(), memory.NewFactsStore(time.Hour, time.Minute), newDurable(t)).
		WithClock(clk.Now)
	return c, clk
}

func TestCache_OneProviderCallWithinWindow(t *testing.T) {
	p := acmeProvider()
	c, clk := newCache(t, p, Options{})
	ctx := context.Background()

	first, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.ProvenanceLive, first.Provenance)
	assert.NotEqual(t, uuid.Nil, first.Id)

	clk.Advance(59 * time.Minute)
	second, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, entity.ProvenanceCached, second.Provenance)
	assert.Equal(t, first.Id, second.Id)
	assert.True(t, first.Items[entity.ItemRevenue].Equal(second.Items[entity.ItemRevenue]))
}

func TestCache_StaleEntryIsRefetched(t *testing.T) {
	p := acmeProvider()
	c, clk := newCache(t, p, Options{StalenessWindow: time.Hour})
	ctx := context.Background()

	_, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	clk.Advance(61 * time.Minute)
	facts, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, entity.ProvenanceLive, facts.Provenance)
}

func TestCache_BypassCache(t *testing.T) {
	p := acmeProvider()
	c, _ := newCache(t, p, Options{})
	ctx := context.Background()

	_, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)
	facts, err := c.Get(ctx, "ACME", "2023", GetOptions{BypassCache: true})
	require.NoError(t, err)

	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, entity.ProvenanceLive, facts.Provenance)
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	p := acmeProvider()
	p.Delay(100 * time.Millisecond)
	c, _ := newCache(t, p, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "ACME", "2023", GetOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, p.Calls())
}

func TestCache_DurableTierServesNewProcess(t *testing.T) {
	p := acmeProvider()
	durable := newDurable(t)
	now := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	warm := NewCache(p, Options{StalenessWindow: time.Hour}, logger.NewNopLogger(), memory.NewFactsStore(time.Hour, time.Minute), durable).WithClock(now)
	_, err := warm.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	mem := memory.NewFactsStore(time.Hour, time.Minute)
	cold := NewCache(p, Options{StalenessWindow: time.Hour}, logger.NewNopLogger(), mem, durable).WithClock(now)
	facts, err := cold.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, entity.ProvenanceCached, facts.Provenance)

	_, backfilled, _ := mem.Get(ctx, "ACME", "2023")
	assert.True(t, backfilled)
}

func TestCache_ProviderFailures(t *testing.T) {
	tests := []struct {
		name           string
		provider       func() Provider
		mockFallback   bool
		wantKind       apperror.Kind
		wantProvenance entity.Provenance
	}{
		{
			name:     "unreachable without fallback",
			provider: func() Provider { p := acmeProvider(); p.FailWith(ErrUnreachable); return p },
			wantKind: apperror.KindDataUnavailable,
		},
		{
			name:           "unreachable with fallback",
			provider:       func() Provider { p := acmeProvider(); p.FailWith(ErrUnreachable); return p },
			mockFallback:   true,
			wantProvenance: entity.ProvenanceMock,
		},
		{
			name:           "no provider with fallback",
			provider:       func() Provider { return nil },
			mockFallback:   true,
			wantProvenance: entity.ProvenanceMock,
		},
		{
			name:     "no provider without fallback",
			provider: func() Provider { return nil },
			wantKind: apperror.KindDataUnavailable,
		},
		{
			name:         "no data is not masked by mock",
			provider:     func() Provider { return NewStaticProvider() },
			mockFallback: true,
			wantKind:     apperror.KindDataUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCache(t, tt.provider(), Options{MockFallback: tt.mockFallback})
			facts, err := c.Get(context.Background(), "ACME", "2023", GetOptions{})
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvenance, facts.Provenance)
			assert.Equal(t, "1000000", facts.Items[entity.ItemRevenue].String())
		})
	}
}

func TestCache_MockIsNotCached(t *testing.T) {
	p := acmeProvider()
	p.FailWith(ErrUnreachable)
	c, _ := newCache(t, p, Options{MockFallback: true})
	ctx := context.Background()

	_, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)

	p.FailWith(nil)
	facts, err := c.Get(ctx, "ACME", "2023", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.ProvenanceLive, facts.Provenance)
	assert.Equal(t, 2, p.Calls())
}

func TestCache_Timeout(t *testing.T) {
	p := acmeProvider()
	p.Delay(time.Second)
	c, _ := newCache(t, p, Options{Timeout: 20 * time.Millisecond, MockFallback: true})

	_, err := c.Get(context.Background(), "ACME", "2023", GetOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.Timeout))
	assert.True(t, apperror.IsRetryable(err))
}

func TestCache_RequiresKey(t *testing.T) {
	c, _ := newCache(t, acmeProvider(), Options{})
	_, err := c.Get(context.Background(), "", "2023", GetOptions{})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCache_CallerCancelDoesNotReachJoinedCallers(t *testing.T) {
	tests := []struct {
		name         string
		mockFallback bool
	}{
		{name: "without fallback"},
		{name: "with fallback", mockFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := acmeProvider()
			p.Delay(200 * time.Millisecond)
			c, _ := newCache(t, p, Options{MockFallback: tt.mockFallback})

			ctxA, cancelA := context.WithCancel(context.Background())
			defer cancelA()

			var errA, errB error
			var factsB *entity.FinancialFacts
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errA = c.Get(ctxA, "ACME", "2023", GetOptions{})
			}()
			time.Sleep(20 * time.Millisecond)
			go func() {
				defer wg.Done()
				factsB, errB = c.Get(context.Background(), "ACME", "2023", GetOptions{})
			}()
			time.Sleep(20 * time.Millisecond)
			cancelA()
			wg.Wait()

			require.Error(t, errA)
			assert.True(t, errors.Is(errA, context.Canceled))
			assert.False(t, apperror.IsKind(errA, apperror.KindDataUnavailable))

			require.NoError(t, errB)
			assert.Equal(t, entity.ProvenanceLive, factsB.Provenance)
			assert.Equal(t, "1000000", factsB.Items[entity.ItemRevenue].String())
			assert.Equal(t, 1, p.Calls())
		})
	}
}

func TestCache_CancelledProviderIsNotMaskedByMock(t *testing.T) {
	p := acmeProvider()
	p.FailWith(context.Canceled)
	c, _ := newCache(t, p, Options{MockFallback: true})

	facts, err := c.Get(context.Background(), "ACME", "2023", GetOptions{})
	require.Error(t, err)
	assert.Nil(t, facts)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, apperror.IsKind(err, apperror.KindDataUnavailable))
}
