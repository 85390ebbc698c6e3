package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/agent/intent"
	"corp-tax-agent-be/pkg/agent/response"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/database"
	"corp-tax-agent-be/pkg/embedding"
	"corp-tax-agent-be/pkg/events"
	"corp-tax-agent-be/pkg/financial"
	"corp-tax-agent-be/pkg/report"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/calc"
	"corp-tax-agent-be/pkg/tax/evaluator"
	"corp-tax-agent-be/pkg/tax/snapshot"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// switchableStorage fails Put while broken is set.
type switchableStorage struct {
	*report.LocalStorage
	mu     sync.Mutex
	broken bool
}

func (s *switchableStorage) setBroken(b bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = b
}

func (s *switchableStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		return "", errors.New("bucket unavailable")
	}
	return s.LocalStorage.Put(ctx, key, data)
}

// downEmbedder fails every call.
type downEmbedder struct{}

func (downEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return nil, errors.New("embedding backend down")
}

type harnessConfig struct {
	mockFallback    bool
	providerTimeout time.Duration
	snapshots       []*entity.ParameterSnapshot
	embedder        embedding.EmbeddingProvider
}

type harness struct {
	orch      *Orchestrator
	factory   unitofwork.RepositoryFactory
	provider  *financial.StaticProvider
	publisher *recordingPublisher
	storage   *switchableStorage
	reportDir string
}

func flatSnapshot(version, baseItem string, from time.Time) *entity.ParameterSnapshot {
	return &entity.ParameterSnapshot{
		Version:       version,
		Formula:       "flat_rate",
		EffectiveFrom: from,
		Parameters:    []entity.Parameter{{Name: "base_item", Value: baseItem}, {Name: "rate", Value: "0.10"}},
	}
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	factory := unitofwork.NewRepositoryFactory(db)
	log := logger.NewNopLogger()

	loader := snapshot.NewLoader(factory, log)
	if cfg.snapshots == nil {
		def, err := snapshot.ReadDefinitionFile("../../../configs/snapshots/flat-10.yaml")
		require.NoError(t, err)
		snap, err := def.ToEntity()
		require.NoError(t, err)
		cfg.snapshots = []*entity.ParameterSnapshot{snap}
	}
	for _, s := range cfg.snapshots {
		require.NoError(t, loader.Create(context.Background(), s))
	}

	if cfg.providerTimeout == 0 {
		cfg.providerTimeout = 2 * time.Second
	}
	provider := financial.NewStaticProvider()
	cache := financial.NewCache(provider, financial.Options{
		StalenessWindow: time.Hour,
		Timeout:         cfg.providerTimeout,
		MockFallback:    cfg.mockFallback,
	}, log, financial.NewDurableStore(factory))

	dir := t.TempDir()
	local, err := report.NewLocalStorage(dir)
	require.NoError(t, err)
	storage := &switchableStorage{LocalStorage: local}

	if cfg.embedder == nil {
		cfg.embedder = embedding.NewHashProvider(128)
	}

	publisher := &recordingPublisher{}
	orch := New(Deps{
		UowFactory:   factory,
		Extractor:    intent.NewExtractor(nil, time.Second, nil),
		Cache:        cache,
		Loader:       loader,
		Engine:       calc.NewEngine(),
		Evaluator:    evaluator.New(),
		Store:        retrieval.NewStore(factory, cfg.embedder, retrieval.Options{}, log),
		Materializer: report.NewMaterializer(report.NewPDFRenderer(), storage, time.Second, log),
		Summarizer:   response.NewSummarizer(nil, time.Second, nil),
		Publisher:    publisher,
		Logger:       log,
	})

	return &harness{orch: orch, factory: factory, provider: provider, publisher: publisher, storage: storage, reportDir: dir}
}

func (h *harness) newSession(t *testing.T) uuid.UUID {
	t.Helper()
	s := &entity.Session{Title: "test"}
	require.NoError(t, h.factory.NewUnitOfWork(context.Background()).SessionRepository().Create(context.Background(), s))
	return s.Id
}

func (h *harness) results(t *testing.T, specs ...specification.Specification) []*entity.CalcResult {
	t.Helper()
	specs = append(specs, specification.OrderBy{Field: "attempt"})
	rs, err := h.factory.NewUnitOfWork(context.Background()).CalcResultRepository().FindAll(context.Background(), specs...)
	require.NoError(t, err)
	return rs
}

func (h *harness) counts(t *testing.T) (artifacts, docs int64) {
	t.Helper()
	uow := h.factory.NewUnitOfWork(context.Background())
	artifacts, err := uow.ReportArtifactRepository().Count(context.Background())
	require.NoError(t, err)
	docs, err = uow.RetrievalDocumentRepository().Count(context.Background())
	require.NoError(t, err)
	return artifacts, docs
}

func (h *harness) turns(t *testing.T, sid uuid.UUID) []*entity.Turn {
	t.Helper()
	turns, err := h.factory.NewUnitOfWork(context.Background()).TurnRepository().FindAll(context.Background(),
		specification.BySessionID{SessionID: sid}, specification.TurnOrder{})
	require.NoError(t, err)
	return turns
}

func acmeItems() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		entity.ItemRevenue:         decimal.NewFromInt(1_000_000),
		entity.ItemOperatingIncome: decimal.NewFromInt(300_000),
		entity.ItemNetIncome:       decimal.NewFromInt(240_000),
	}
}

func TestHandleTurn_AcmeScenario(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, reply.Status)
	assert.Equal(t, intent.TagCalculate, reply.Intent)
	assert.Empty(t, reply.ErrorKind)
	assert.Contains(t, reply.Reply, "100,000 KRW")
	require.NotNil(t, reply.Artifact)
	require.NotNil(t, reply.CalcResultId)

	results := h.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, entity.CalcStatusAccepted, results[0].Status)
	assert.True(t, results[0].Total.Equal(decimal.NewFromInt(100_000)))
	assert.Equal(t, "flat-10", results[0].SnapshotVersion)
	assert.Equal(t, 1.0, results[0].Confidence)

	artifacts, docs := h.counts(t)
	assert.Equal(t, int64(1), artifacts)
	assert.Equal(t, int64(1), docs)

	_, err = os.Stat(filepath.Join(h.reportDir, reply.Artifact.Handle))
	assert.NoError(t, err)

	turns := h.turns(t, sid)
	require.Len(t, turns, 2)
	assert.Equal(t, entity.TurnRoleUser, turns[0].Role)
	assert.Equal(t, entity.TurnRoleAgent, turns[1].Role)
	require.NotNil(t, turns[1].CalcResultId)
	assert.Equal(t, results[0].Id, *turns[1].CalcResultId)

	types := h.publisher.types()
	assert.Contains(t, types, events.TypeResultAccepted)
	assert.Contains(t, types, events.TypeReportMaterialized)
	assert.Equal(t, events.TypeTurnCompleted, types[len(types)-1])
}

func TestHandleTurn_ComparePriorRankedFirst(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.provider.Set("ACME", "2022", "ACME Corp", map[string]decimal.Decimal{
		entity.ItemRevenue:         decimal.NewFromInt(800_000),
		entity.ItemOperatingIncome: decimal.NewFromInt(240_000),
		entity.ItemNetIncome:       decimal.NewFromInt(200_000),
	})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	sid := h.newSession(t)
	ctx := context.Background()

	_, err := h.orch.HandleTurn(ctx, sid, "Calculate corporate tax for ACME 2022")
	require.NoError(t, err)
	latest, err := h.orch.HandleTurn(ctx, sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, latest.Status)

	reply, err := h.orch.HandleTurn(ctx, sid, "compare ACME to last time")
	require.NoError(t, err)

	assert.Equal(t, intent.TagCompare, reply.Intent)
	assert.Equal(t, StatusOK, reply.Status)
	require.NotNil(t, reply.Comparison)
	require.NotEmpty(t, reply.Comparison.Rows)
	assert.Equal(t, "2022", reply.Comparison.Rows[0].Period)
	require.NotNil(t, reply.Comparison.Rows[0].ChangePct)
	assert.Equal(t, "25", reply.Comparison.Rows[0].ChangePct.String())
	assert.Equal(t, *latest.CalcResultId, reply.Comparison.Reference.Id)

	assert.Len(t, h.results(t), 2)
}

func TestHandleTurn_UnreachableProviderWithoutFallback(t *testing.T) {
	h := newHarness(t, harnessConfig{mockFallback: false})
	h.provider.FailWith(financial.ErrUnreachable)
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	assert.Equal(t, apperror.KindDataUnavailable, reply.ErrorKind)
	assert.Equal(t, StatusFailed, reply.Status)
	assert.Nil(t, reply.CalcResultId)
	assert.NotContains(t, reply.Reply, "unreachable")
	assert.Empty(t, h.results(t))

	turns := h.turns(t, sid)
	require.Len(t, turns, 2)
	assert.Equal(t, string(apperror.KindDataUnavailable), turns[1].ErrorKind)
}

func TestHandleTurn_MockFallbackMarksProvenance(t *testing.T) {
	h := newHarness(t, harnessConfig{mockFallback: true})
	h.provider.FailWith(financial.ErrUnreachable)
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	results := h.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, entity.ProvenanceMock, results[0].Provenance)
	assert.Contains(t, reply.Reply, "demo data")
}

func TestHandleTurn_BoundedRetryEndsInFail(t *testing.T) {
	h := newHarness(t, harnessConfig{snapshots: []*entity.ParameterSnapshot{
		flatSnapshot("flat-assets", "assets", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
	}})
	// base of 3x revenue keeps the score at 0.7 on every attempt
	h.provider.Set("LOWC", "2023", "Low Confidence Ltd", map[string]decimal.Decimal{
		entity.ItemRevenue:         decimal.NewFromInt(1_000_000),
		entity.ItemOperatingIncome: decimal.NewFromInt(2_000_000),
		entity.ItemNetIncome:       decimal.NewFromInt(1_500_000),
		"assets":                   decimal.NewFromInt(3_000_000),
	})
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for LOWC 2023")
	require.NoError(t, err)

	assert.Equal(t, apperror.KindLowConfidence, reply.ErrorKind)
	assert.Equal(t, StatusRejected, reply.Status)
	assert.Nil(t, reply.Artifact)

	results := h.results(t)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, entity.CalcStatusRejected, r.Status)
		assert.Equal(t, 0.7, r.Confidence)
	}
	assert.Equal(t, string(StrategyDefault), results[0].Strategy)
	assert.Equal(t, string(StrategyBypassCache), results[1].Strategy)
	assert.Equal(t, 2, h.provider.Calls())

	artifacts, docs := h.counts(t)
	assert.Zero(t, artifacts)
	assert.Zero(t, docs)
}

func TestHandleTurn_TimeoutIsRetriedThenReported(t *testing.T) {
	h := newHarness(t, harnessConfig{providerTimeout: 20 * time.Millisecond})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	h.provider.Delay(time.Second)
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	assert.Equal(t, apperror.KindTimeout, reply.ErrorKind)
	assert.Equal(t, 2, h.provider.Calls())
	assert.Empty(t, h.results(t))
}

func TestHandleTurn_ReportFailureThenReportIntent(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	h.storage.setBroken(true)
	sid := h.newSession(t)
	ctx := context.Background()

	reply, err := h.orch.HandleTurn(ctx, sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, reply.Status)
	assert.Equal(t, apperror.KindRender, reply.ErrorKind)
	assert.Nil(t, reply.Artifact)
	results := h.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, entity.CalcStatusAccepted, results[0].Status)
	artifacts, docs := h.counts(t)
	assert.Zero(t, artifacts)
	assert.Zero(t, docs)
	assert.Contains(t, h.publisher.types(), events.TypeReportFailed)

	h.storage.setBroken(false)
	reply, err = h.orch.HandleTurn(ctx, sid, "give me the PDF report")
	require.NoError(t, err)

	assert.Equal(t, intent.TagReport, reply.Intent)
	assert.Equal(t, StatusAccepted, reply.Status)
	require.NotNil(t, reply.Artifact)
	assert.Equal(t, results[0].Id, reply.Artifact.CalcResultId)
	artifacts, docs = h.counts(t)
	assert.Equal(t, int64(1), artifacts)
	assert.Equal(t, int64(1), docs)
	assert.Len(t, h.results(t), 1)

	// every accepted result has a report now, so the existing one is returned
	again, err := h.orch.HandleTurn(ctx, sid, "download the report")
	require.NoError(t, err)
	require.NotNil(t, again.Artifact)
	assert.Equal(t, reply.Artifact.ReportId, again.Artifact.ReportId)
}

func storedBlobs(t *testing.T, dir string) []string {
	t.Helper()
	var blobs []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			blobs = append(blobs, path)
		}
		return nil
	})
	require.NoError(t, err)
	return blobs
}

func TestHandleTurn_EmbeddingFailureDiscardsReport(t *testing.T) {
	h := newHarness(t, harnessConfig{embedder: downEmbedder{}})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, reply.Status)
	assert.Equal(t, apperror.KindRender, reply.ErrorKind)
	assert.Nil(t, reply.Artifact)

	results := h.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, entity.CalcStatusAccepted, results[0].Status)

	artifacts, docs := h.counts(t)
	assert.Zero(t, artifacts)
	assert.Zero(t, docs)
	assert.Empty(t, storedBlobs(t, h.reportDir))
	assert.Contains(t, h.publisher.types(), events.TypeReportFailed)
}

func TestHandleTurn_ReportWithoutResults(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "give me the PDF report")
	require.NoError(t, err)
	assert.Equal(t, apperror.KindNotFound, reply.ErrorKind)
}

func TestHandleTurn_Clarification(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "hello there")
	require.NoError(t, err)

	assert.Equal(t, StatusClarify, reply.Status)
	assert.Equal(t, apperror.KindIntentParse, reply.ErrorKind)
	assert.Empty(t, h.results(t))
	assert.Len(t, h.turns(t, sid), 2)
	assert.Zero(t, h.provider.Calls())
}

func TestHandleTurn_MissingSnapshot(t *testing.T) {
	h := newHarness(t, harnessConfig{snapshots: []*entity.ParameterSnapshot{}})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	sid := h.newSession(t)

	reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
	require.NoError(t, err)
	assert.Equal(t, apperror.KindSnapshotNotFound, reply.ErrorKind)
	assert.Empty(t, h.results(t))
}

func TestHandleTurn_UnknownSession(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	_, err := h.orch.HandleTurn(context.Background(), uuid.New(), "Calculate corporate tax for ACME 2023")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestHandleTurn_ConcurrentSessions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	h := newHarness(t, harnessConfig{})
	h.provider.Set("ACME", "2023", "ACME Corp", acmeItems())
	sessions := []uuid.UUID{h.newSession(t), h.newSession(t)}

	var wg sync.WaitGroup
	for _, sid := range sessions {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(sid uuid.UUID) {
				defer wg.Done()
				reply, err := h.orch.HandleTurn(context.Background(), sid, "Calculate corporate tax for ACME 2023")
				assert.NoError(t, err)
				assert.Equal(t, StatusAccepted, reply.Status)
			}(sid)
		}
	}
	wg.Wait()

	for _, sid := range sessions {
		turns := h.turns(t, sid)
		require.Len(t, turns, 4)
		// serialized: user and agent turns alternate
		for i, turn := range turns {
			want := entity.TurnRoleUser
			if i%2 == 1 {
				want = entity.TurnRoleAgent
			}
			assert.Equal(t, want, turn.Role)
			assert.Equal(t, i+1, turn.Seq)
		}
	}
	assert.Len(t, h.results(t), 4)
	assert.Zero(t, h.orch.locker.Len())
}

func TestRouterTable(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	assert.Equal(t, []string{intent.TagCalculate, intent.TagCompare, intent.TagReport}, h.orch.Router().Tags())
}
