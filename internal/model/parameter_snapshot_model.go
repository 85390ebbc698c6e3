package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ParameterSnapshot struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Version       string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Formula       string         `gorm:"type:varchar(64);not null"`
	Description   string         `gorm:"type:text"`
	EffectiveFrom time.Time      `gorm:"not null;index"`
	EffectiveTo   *time.Time     `gorm:"index"`
	Parameters    datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (ParameterSnapshot) TableName() string {
	return "parameter_snapshots"
}
