package model

import (
	"time"

	"github.com/google/uuid"
)

type ReportArtifact struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CalcResultId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	StorageBackend string    `gorm:"type:varchar(16);not null"`
	StorageHandle  string    `gorm:"type:text;not null"`
	Checksum       string    `gorm:"type:varchar(128);not null"`
	SizeBytes      int64
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ReportArtifact) TableName() string {
	return "report_artifacts"
}
