// Package retrieval indexes accepted calculations as searchable documents and
// serves exact, semantic and hybrid lookups over them.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/embedding"
	"corp-tax-agent-be/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeExact    Mode = "exact"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

const (
	DefaultK = 5
	MaxK     = 50
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExact, ModeSemantic, ModeHybrid:
		return Mode(s), nil
	case "":
		return ModeHybrid, nil
	}
	return "", apperror.New(apperror.KindValidation, "retrieval.ParseMode", fmt.Sprintf("unknown search mode %q", s))
}

type Options struct {
	ExactWeight      float64
	SemanticWeight   float64
	EmbeddingTimeout time.Duration
}

type SearchOption func(*contract.RetrievalFilter)

// WithSubject restricts results to one subject.
func WithSubject(subject string) SearchOption {
	return func(f *contract.RetrievalFilter) { f.Subject = subject }
}

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	opts       Options
	logger     logger.ILogger
	now        func() time.Time
}

func NewStore(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, opts Options, logger logger.ILogger) *Store {
	if opts.ExactWeight <= 0 && opts.SemanticWeight <= 0 {
		opts.ExactWeight, opts.SemanticWeight = 0.5, 0.5
	}
	if opts.EmbeddingTimeout <= 0 {
		opts.EmbeddingTimeout = 10 * time.Second
	}
	return &Store{
		uowFactory: uowFactory,
		embedder:   embedder,
		opts:       opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the store's notion of "now" used to stamp documents.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Prepared is a document whose embedding and term postings are computed and
// which only needs writing.
type Prepared struct {
	Document *entity.RetrievalDocument
	Terms    []entity.RetrievalTerm
}

// Prepare runs everything that talks to the outside world. Nothing is written.
func (s *Store) Prepare(ctx context.Context, doc *entity.RetrievalDocument) (*Prepared, error) {
	if doc.Content == "" {
		return nil, apperror.New(apperror.KindValidation, "retrieval.Prepare", "document content is empty")
	}

	vec, err := s.embed(ctx, doc.Content, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}

	prepared := *doc
	if prepared.Id == uuid.Nil {
		prepared.Id = uuid.New()
	}
	if prepared.CreatedAt.IsZero() {
		prepared.CreatedAt = s.now()
	}
	prepared.Embedding = vec

	freq := utils.TermFrequencies(prepared.Content)
	terms := make([]entity.RetrievalTerm, 0, len(freq))
	for _, term := range utils.UniqueTerms(prepared.Content) {
		terms = append(terms, entity.RetrievalTerm{DocumentId: prepared.Id, Term: term, Frequency: freq[term]})
	}

	return &Prepared{Document: &prepared, Terms: terms}, nil
}

// Persist writes a prepared document and its postings through uow. The
// caller owns the transaction.
func (s *Store) Persist(ctx context.Context, uow unitofwork.UnitOfWork, p *Prepared) error {
	repo := uow.RetrievalDocumentRepository()
	if err := repo.Create(ctx, p.Document); err != nil {
		return fmt.Errorf("create retrieval document: %w", err)
	}
	if err := repo.CreateTerms(ctx, p.Terms); err != nil {
		return fmt.Errorf("create retrieval terms: %w", err)
	}
	return nil
}

// IndexWithin prepares and persists doc inside a transaction the caller
// already began on uow.
func (s *Store) IndexWithin(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.RetrievalDocument) error {
	p, err := s.Prepare(ctx, doc)
	if err != nil {
		return err
	}
	if err := s.Persist(ctx, uow, p); err != nil {
		return err
	}
	*doc = *p.Document
	return nil
}

// Index stores doc with its postings atomically: when embedding or either
// write fails, neither the document nor any term remains.
func (s *Store) Index(ctx context.Context, doc *entity.RetrievalDocument) error {
	p, err := s.Prepare(ctx, doc)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := s.Persist(ctx, uow, p); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	*doc = *p.Document
	s.logger.Info("RETRIEVAL", "Document indexed", map[string]interface{}{
		"document_id": doc.Id.String(),
		"subject":     doc.Subject,
		"terms":       len(p.Terms),
	})
	return nil
}

// Search ranks documents for query. Results are ordered by score, then newest
// first, then by id.
func (s *Store) Search(ctx context.Context, query string, k int, mode Mode, opts ...SearchOption) ([]*entity.ScoredDocument, error) {
	var filter contract.RetrievalFilter
	for _, opt := range opts {
		opt(&filter)
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}

	var (
		results []*entity.ScoredDocument
		err     error
	)
	switch mode {
	case ModeExact:
		results, err = s.searchExact(ctx, query, k, filter)
	case ModeSemantic:
		results, err = s.searchSemantic(ctx, query, k, filter)
	case ModeHybrid, "":
		results, err = s.searchHybrid(ctx, query, k, filter)
	default:
		return nil, apperror.New(apperror.KindValidation, "retrieval.Search", fmt.Sprintf("unknown search mode %q", mode))
	}
	if err != nil {
		return nil, err
	}

	sortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Store) searchExact(ctx context.Context, query string, k int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	terms := utils.UniqueTerms(query)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.RetrievalDocumentRepository().SearchExact(ctx, terms, k, filter)
}

func (s *Store) searchSemantic(ctx context.Context, query string, k int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	vec, err := s.embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.RetrievalDocumentRepository().SearchSimilar(ctx, vec, k, filter)
}

// searchHybrid runs both searches concurrently and blends their scores. When
// the semantic side fails the exact ranking is returned alone.
func (s *Store) searchHybrid(ctx context.Context, query string, k int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	candidates := k * 3
	var exact, semantic []*entity.ScoredDocument
	var semanticErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exact, err = s.searchExact(gctx, query, candidates, filter)
		return err
	})
	g.Go(func() error {
		semantic, semanticErr = s.searchSemantic(gctx, query, candidates, filter)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if semanticErr != nil {
		s.logger.Warn("RETRIEVAL", "Semantic search failed, using exact ranking", map[string]interface{}{
			"error": semanticErr.Error(),
		})
		return exact, nil
	}

	merged := make(map[uuid.UUID]*entity.ScoredDocument, len(exact)+len(semantic))
	for _, d := range exact {
		merged[d.Document.Id] = &entity.ScoredDocument{Document: d.Document, ExactScore: d.ExactScore}
	}
	for _, d := range semantic {
		sd, ok := merged[d.Document.Id]
		if !ok {
			sd = &entity.ScoredDocument{Document: d.Document}
			merged[d.Document.Id] = sd
		}
		sd.SemanticScore = d.SemanticScore
	}

	out := make([]*entity.ScoredDocument, 0, len(merged))
	for _, sd := range merged {
		semanticPart := sd.SemanticScore
		if semanticPart < 0 {
			semanticPart = 0
		}
		sd.Score = s.opts.ExactWeight*sd.ExactScore + s.opts.SemanticWeight*semanticPart
		out = append(out, sd)
	}
	return out, nil
}

func (s *Store) embed(ctx context.Context, text, task string) ([]float32, error) {
	if s.embedder == nil {
		return nil, apperror.New(apperror.KindInternal, "retrieval.embed", "no embedding provider configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.EmbeddingTimeout)
	defer cancel()

	res, err := s.embedder.Generate(callCtx, text, task)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, apperror.Wrap(apperror.KindTimeout, "retrieval.embed", err)
		}
		return nil, apperror.FromExternal("retrieval.embed", err, apperror.KindInternal)
	}
	return res.Embedding.Values, nil
}

func sortScored(docs []*entity.ScoredDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
			return a.Document.CreatedAt.After(b.Document.CreatedAt)
		}
		return a.Document.Id.String() < b.Document.Id.String()
	})
}
