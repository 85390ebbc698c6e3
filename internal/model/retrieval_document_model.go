package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type RetrievalDocument struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CalcResultId uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Subject      string          `gorm:"type:varchar(64);not null;index"`
	Period       string          `gorm:"type:varchar(16);not null"`
	Content      string          `gorm:"type:text;not null"`
	Embedding    pgvector.Vector `gorm:"type:vector"`
	CreatedAt    time.Time       `gorm:"not null;index"`
}

func (RetrievalDocument) TableName() string {
	return "retrieval_documents"
}

type RetrievalTerm struct {
	DocumentId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Term       string    `gorm:"type:varchar(128);primaryKey;index"`
	Frequency  int       `gorm:"not null"`
}

func (RetrievalTerm) TableName() string {
	return "retrieval_terms"
}
