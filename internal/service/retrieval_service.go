package service

import (
	"context"

	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/pkg/retrieval"
)

type IRetrievalService interface {
	Search(ctx context.Context, req *dto.SearchRequest) ([]*dto.SearchResultResponse, error)
}

type retrievalService struct {
	store *retrieval.Store
}

func NewRetrievalService(store *retrieval.Store) IRetrievalService {
	return &retrievalService{store: store}
}

func (s *retrievalService) Search(ctx context.Context, req *dto.SearchRequest) ([]*dto.SearchResultResponse, error) {
	mode, err := retrieval.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	var opts []retrieval.SearchOption
	if req.Subject != "" {
		opts = append(opts, retrieval.WithSubject(req.Subject))
	}

	docs, err := s.store.Search(ctx, req.Query, req.K, mode, opts...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SearchResultResponse, 0, len(docs))
	for _, sd := range docs {
		res = append(res, &dto.SearchResultResponse{
			DocumentId:    sd.Document.Id,
			CalcResultId:  sd.Document.CalcResultId,
			Subject:       sd.Document.Subject,
			Period:        sd.Document.Period,
			Content:       sd.Document.Content,
			Score:         sd.Score,
			ExactScore:    sd.ExactScore,
			SemanticScore: sd.SemanticScore,
			CreatedAt:     sd.Document.CreatedAt,
		})
	}
	return res, nil
}
