package dto

import (
	"time"

	"github.com/google/uuid"
)

type SnapshotParameterDTO struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type CreateSnapshotRequest struct {
	Version       string                 `json:"version" validate:"required,max=64"`
	Formula       string                 `json:"formula" validate:"required"`
	Description   string                 `json:"description"`
	EffectiveFrom string                 `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   string                 `json:"effective_to" validate:"omitempty,datetime=2006-01-02"`
	Parameters    []SnapshotParameterDTO `json:"parameters" validate:"required,min=1,dive"`
}

type SnapshotResponse struct {
	Id            uuid.UUID              `json:"id"`
	Version       string                 `json:"version"`
	Formula       string                 `json:"formula"`
	Description   string                 `json:"description,omitempty"`
	EffectiveFrom string                 `json:"effective_from"`
	EffectiveTo   string                 `json:"effective_to,omitempty"`
	Parameters    []SnapshotParameterDTO `json:"parameters"`
	CreatedAt     time.Time              `json:"created_at"`
}
