package entity

import (
	"time"

	"github.com/google/uuid"
)

type RetrievalDocument struct {
	Id           uuid.UUID
	CalcResultId uuid.UUID
	Subject      string
	Period       string
	Content      string
	Embedding    []float32
	CreatedAt    time.Time
}

// RetrievalTerm is one posting of the exact-term index.
type RetrievalTerm struct {
	DocumentId uuid.UUID
	Term       string
	Frequency  int
}

type ScoredDocument struct {
	Document      *RetrievalDocument
	Score         float64
	ExactScore    float64
	SemanticScore float64
}
