package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CalcResult struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Subject         string         `gorm:"type:varchar(64);not null;index:idx_calc_subject_period"`
	SubjectName     string         `gorm:"type:text"`
	Period          string         `gorm:"type:varchar(16);not null;index:idx_calc_subject_period"`
	SnapshotVersion string         `gorm:"type:varchar(64);not null"`
	Formula         string         `gorm:"type:varchar(64)"`
	FactsId         uuid.UUID      `gorm:"type:uuid"`
	Provenance      string         `gorm:"type:varchar(16);not null"`
	LineItems       datatypes.JSON `gorm:"not null"`
	Total           string         `gorm:"type:varchar(64);not null"`
	MissingFacts    datatypes.JSON
	Confidence      float64
	Concerns        datatypes.JSON
	Status          string    `gorm:"type:varchar(16);not null;index"`
	Attempt         int       `gorm:"not null;default:1"`
	Strategy        string    `gorm:"type:varchar(32)"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (CalcResult) TableName() string {
	return "calc_results"
}
