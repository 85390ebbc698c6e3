package dto

import (
	"time"

	"github.com/google/uuid"
)

type SearchRequest struct {
	Query   string `query:"q" validate:"required"`
	K       int    `query:"k" validate:"omitempty,min=1,max=50"`
	Mode    string `query:"mode" validate:"omitempty,oneof=exact semantic hybrid"`
	Subject string `query:"subject"`
}

type SearchResultResponse struct {
	DocumentId    uuid.UUID `json:"document_id"`
	CalcResultId  uuid.UUID `json:"calc_result_id"`
	Subject       string    `json:"subject"`
	Period        string    `json:"period"`
	Content       string    `json:"content"`
	Score         float64   `json:"score"`
	ExactScore    float64   `json:"exact_score"`
	SemanticScore float64   `json:"semantic_score"`
	CreatedAt     time.Time `json:"created_at"`
}
