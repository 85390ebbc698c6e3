package implementation

import (
	"context"
	"math"
	"sort"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/mapper"
	"corp-tax-agent-be/internal/model"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type RetrievalDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RetrievalMapper
}

func NewRetrievalDocumentRepository(db *gorm.DB) contract.RetrievalDocumentRepository {
	return &RetrievalDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewRetrievalMapper(),
	}
}

func (r *RetrievalDocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RetrievalDocumentRepositoryImpl) Create(ctx context.Context, doc *entity.RetrievalDocument) error {
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *RetrievalDocumentRepositoryImpl) CreateTerms(ctx context.Context, terms []entity.RetrievalTerm) error {
	if len(terms) == 0 {
		return nil
	}
	models := make([]*model.RetrievalTerm, len(terms))
	for i, t := range terms {
		models[i] = r.mapper.TermToModel(t)
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

func (r *RetrievalDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RetrievalDocument, error) {
	var models []*model.RetrievalDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.RetrievalDocument, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *RetrievalDocumentRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.RetrievalDocument, error) {
	out := make(map[uuid.UUID]*entity.RetrievalDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := r.FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.Id] = d
	}
	return out, nil
}

func (r *RetrievalDocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.RetrievalDocument{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RetrievalDocumentRepositoryImpl) CountTerms(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RetrievalTerm{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RetrievalDocumentRepositoryImpl) SearchExact(ctx context.Context, terms []string, limit int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	if len(terms) == 0 {
		return []*entity.ScoredDocument{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	type exactRow struct {
		DocumentId uuid.UUID
		Matched    int
	}
	var rows []exactRow

	query := r.db.WithContext(ctx).
		Table("retrieval_terms").
		Select("retrieval_terms.document_id AS document_id, COUNT(DISTINCT retrieval_terms.term) AS matched").
		Joins("JOIN retrieval_documents ON retrieval_documents.id = retrieval_terms.document_id").
		Where("retrieval_terms.term IN ?", terms)
	if filter.Subject != "" {
		query = query.Where("retrieval_documents.subject = ?", filter.Subject)
	}
	err := query.
		Group("retrieval_terms.document_id, retrieval_documents.created_at").
		Order("matched DESC").
		Order("retrieval_documents.created_at DESC").
		Order("retrieval_terms.document_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.DocumentId
	}
	docs, err := r.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocument, 0, len(rows))
	for _, row := range rows {
		doc, ok := docs[row.DocumentId]
		if !ok {
			continue
		}
		score := float64(row.Matched) / float64(len(terms))
		scored = append(scored, &entity.ScoredDocument{Document: doc, Score: score, ExactScore: score})
	}
	return scored, nil
}

func (r *RetrievalDocumentRepositoryImpl) SearchSimilar(ctx context.Context, vector []float32, limit int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	if len(vector) == 0 {
		return []*entity.ScoredDocument{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if r.db.Dialector.Name() == "postgres" {
		return r.searchSimilarPgvector(ctx, vector, limit, filter)
	}
	return r.searchSimilarInProcess(ctx, vector, limit, filter)
}

// searchSimilarPgvector ranks in the database: 1 - cosine distance = cosine similarity.
func (r *RetrievalDocumentRepositoryImpl) searchSimilarPgvector(ctx context.Context, vector []float32, limit int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	type result struct {
		model.RetrievalDocument
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)
	query := r.db.WithContext(ctx).
		Table("retrieval_documents").
		Select("retrieval_documents.*, 1 - (embedding <=> ?) AS similarity", queryVector)
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	err := query.
		Order("similarity DESC").
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocument, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredDocument{
			Document:      r.mapper.ToEntity(&res.RetrievalDocument),
			Score:         res.Similarity,
			SemanticScore: res.Similarity,
		}
	}
	return scored, nil
}

// searchSimilarInProcess serves engines without a vector operator (sqlite).
func (r *RetrievalDocumentRepositoryImpl) searchSimilarInProcess(ctx context.Context, vector []float32, limit int, filter contract.RetrievalFilter) ([]*entity.ScoredDocument, error) {
	var specs []specification.Specification
	if filter.Subject != "" {
		specs = append(specs, specification.BySubject{Subject: filter.Subject})
	}
	docs, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		sim := cosineSimilarity(vector, doc.Embedding)
		scored = append(scored, &entity.ScoredDocument{Document: doc, Score: sim, SemanticScore: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
			return a.Document.CreatedAt.After(b.Document.CreatedAt)
		}
		return a.Document.Id.String() < b.Document.Id.String()
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
