package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/database"
	"corp-tax-agent-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEmbedder struct{}

func (failingEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return nil, errors.New("embedding backend down")
}

type fixture struct {
	store   *Store
	factory unitofwork.RepositoryFactory
	clock   time.Time
}

func newFixture(t *testing.T, embedder embedding.EmbeddingProvider) *fixture {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	f := &fixture{
		factory: unitofwork.NewRepositoryFactory(db),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.store = NewStore(f.factory, embedder, Options{ExactWeight: 0.5, SemanticWeight: 0.5}, logger.NewNopLogger()).
		WithClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) index(t *testing.T, subject, period, content string) *entity.RetrievalDocument {
	t.Helper()
	doc := &entity.RetrievalDocument{CalcResultId: uuid.New(), Subject: subject, Period: period, Content: content}
	require.NoError(t, f.store.Index(context.Background(), doc))
	f.clock = f.clock.Add(time.Minute)
	return doc
}

func (f *fixture) counts(t *testing.T) (int64, int64) {
	t.Helper()
	repo := f.factory.NewUnitOfWork(context.Background()).RetrievalDocumentRepository()
	docs, err := repo.Count(context.Background())
	require.NoError(t, err)
	terms, err := repo.CountTerms(context.Background())
	require.NoError(t, err)
	return docs, terms
}

func TestIndex_FailingEmbedderWritesNothing(t *testing.T) {
	f := newFixture(t, failingEmbedder{})

	err := f.store.Index(context.Background(), &entity.RetrievalDocument{
		CalcResultId: uuid.New(), Subject: "ACME", Period: "2023", Content: "ACME 2023 total 100,000",
	})
	require.Error(t, err)

	docs, terms := f.counts(t)
	assert.Zero(t, docs)
	assert.Zero(t, terms)
}

func TestIndex_WritesDocumentAndTerms(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(32))
	doc := f.index(t, "ACME", "2023", "ACME 2023 tax tax")

	assert.NotEqual(t, uuid.Nil, doc.Id)
	assert.Len(t, doc.Embedding, 32)

	docs, terms := f.counts(t)
	assert.Equal(t, int64(1), docs)
	assert.Equal(t, int64(3), terms)
}

func TestPersist_RollsBackDocumentWhenTermsFail(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(32))
	ctx := context.Background()

	p, err := f.store.Prepare(ctx, &entity.RetrievalDocument{CalcResultId: uuid.New(), Subject: "ACME", Period: "2023", Content: "ACME tax"})
	require.NoError(t, err)
	// duplicate posting violates the (document_id, term) key
	p.Terms = append(p.Terms, p.Terms[0])

	uow := f.factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	err = f.store.Persist(ctx, uow, p)
	require.Error(t, err)
	require.NoError(t, uow.Rollback())

	docs, terms := f.counts(t)
	assert.Zero(t, docs)
	assert.Zero(t, terms)
}

func TestSearch_ExactScores(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(64))
	both := f.index(t, "ACME", "2023", "ACME 2023 corporate tax")
	f.index(t, "ACME", "2022", "ACME 2022 corporate tax")
	f.index(t, "BETA", "2021", "BETA 2021 corporate tax")

	results, err := f.store.Search(context.Background(), "acme 2023", 5, ModeExact)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, both.Id, results[0].Document.Id)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, 0.5, results[1].Score)
}

func TestSearch_TiesNewestFirst(t *testing.T) {
	for _, mode := range []Mode{ModeExact, ModeSemantic, ModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, embedding.NewHashProvider(64))
			older := f.index(t, "ACME", "2023", "ACME 2023 corporate tax")
			newer := f.index(t, "ACME", "2023", "ACME 2023 corporate tax")

			results, err := f.store.Search(context.Background(), "ACME 2023 corporate tax", 5, mode)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, results[0].Score, results[1].Score)
			assert.Equal(t, newer.Id, results[0].Document.Id)
			assert.Equal(t, older.Id, results[1].Document.Id)
		})
	}
}

func TestSearch_SubjectFilterAndLimit(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(64))
	for i := 0; i < 4; i++ {
		f.index(t, "ACME", "2023", "ACME corporate tax")
	}
	f.index(t, "BETA", "2023", "BETA corporate tax")

	results, err := f.store.Search(context.Background(), "corporate tax", 3, ModeHybrid, WithSubject("BETA"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BETA", results[0].Document.Subject)

	results, err = f.store.Search(context.Background(), "corporate tax", 3, ModeHybrid)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_HybridFallsBackToExact(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(64))
	doc := f.index(t, "ACME", "2023", "ACME 2023 corporate tax")
	f.store.embedder = failingEmbedder{}

	results, err := f.store.Search(context.Background(), "ACME", 5, ModeHybrid)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc.Id, results[0].Document.Id)

	_, err = f.store.Search(context.Background(), "ACME", 5, ModeSemantic)
	assert.Error(t, err)
}

func TestSearch_UnknownMode(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(8))
	_, err := f.store.Search(context.Background(), "x", 5, Mode("fuzzy"))
	assert.Error(t, err)

	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, m)
}

func TestCompare_PriorDocumentRanksFirst(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(128))
	ctx := context.Background()

	newResult := func(subject, period, total string) *entity.CalcResult {
		r := &entity.CalcResult{
			Subject: subject, Period: period, SnapshotVersion: "flat-10", Formula: "flat_rate",
			Provenance: entity.ProvenanceLive, Total: decimal.RequireFromString(total),
			LineItems: []entity.LineItem{
				{Name: "taxable_base", Amount: decimal.RequireFromString(total).Mul(decimal.NewFromInt(10))},
				{Name: "total_tax", Amount: decimal.RequireFromString(total)},
			},
			Status: entity.CalcStatusAccepted, Attempt: 1,
		}
		require.NoError(t, f.factory.NewUnitOfWork(ctx).CalcResultRepository().Create(ctx, r))
		require.NoError(t, f.store.Index(ctx, NewDocument(r)))
		f.clock = f.clock.Add(time.Minute)
		return r
	}

	prior := newResult("ACME", "2023", "100000")
	newResult("BETA", "2023", "5000")

	current := &entity.CalcResult{Id: uuid.New(), Subject: "ACME", Period: "2024", Total: decimal.RequireFromString("120000")}
	cmp, err := f.store.Compare(ctx, "ACME", "compare ACME 2023", current)
	require.NoError(t, err)

	require.Len(t, cmp.Rows, 1)
	assert.Equal(t, prior.Id, cmp.Rows[0].CalcResultId)
	require.NotNil(t, cmp.Rows[0].ChangePct)
	assert.Equal(t, "20", cmp.Rows[0].ChangePct.String())
}

func TestCompare_WithoutReferenceUsesTopRow(t *testing.T) {
	f := newFixture(t, embedding.NewHashProvider(128))
	cmp, err := f.store.Compare(context.Background(), "ACME", "compare ACME", nil)
	require.NoError(t, err)
	assert.True(t, cmp.Empty())
}

func TestBuildContent(t *testing.T) {
	r := &entity.CalcResult{
		Subject: "ACME", SubjectName: "ACME Corp", Period: "2023",
		SnapshotVersion: "flat-10", Formula: "flat_rate", Provenance: entity.ProvenanceLive,
		LineItems: []entity.LineItem{
			{Name: "taxable_base", Amount: decimal.NewFromInt(1_000_000)},
			{Name: "total_tax", Amount: decimal.NewFromInt(100_000)},
		},
		Total: decimal.NewFromInt(100_000), Confidence: 1,
	}
	content := BuildContent(r)
	assert.Contains(t, content, "subject: ACME (ACME Corp)")
	assert.Contains(t, content, "taxable_base: 1,000,000")
	assert.Contains(t, content, "effective rate: 10.00%")
	assert.Contains(t, content, "concerns: none")
}
