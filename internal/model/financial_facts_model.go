package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FinancialFacts struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Subject     string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_facts_subject_period"`
	Period      string         `gorm:"type:varchar(16);not null;uniqueIndex:idx_facts_subject_period"`
	SubjectName string         `gorm:"type:text"`
	Items       datatypes.JSON `gorm:"not null"`
	Provenance  string         `gorm:"type:varchar(16);not null"`
	FetchedAt   time.Time      `gorm:"not null"`
}

func (FinancialFacts) TableName() string {
	return "financial_facts"
}
