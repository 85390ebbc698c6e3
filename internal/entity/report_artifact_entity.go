package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReportArtifact struct {
	Id             uuid.UUID
	CalcResultId   uuid.UUID
	StorageBackend string
	StorageHandle  string
	Checksum       string
	SizeBytes      int64
	CreatedAt      time.Time
}
