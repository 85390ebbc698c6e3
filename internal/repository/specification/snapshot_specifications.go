package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByVersion struct {
	Version string
}

func (s ByVersion) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("version = ?", s.Version)
}

// EffectiveBy keeps snapshots that were already in force at At.
type EffectiveBy struct {
	At time.Time
}

func (s EffectiveBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("effective_from <= ?", s.At)
}

// CoveringRange keeps snapshots whose effective range overlaps [Start, End].
type CoveringRange struct {
	Start time.Time
	End   time.Time
}

func (s CoveringRange) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("effective_from <= ?", s.End).
		Where("(effective_to IS NULL OR effective_to >= ?)", s.Start)
}

// LatestEffective orders the most recently effective snapshot first.
type LatestEffective struct{}

func (s LatestEffective) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("effective_from DESC").Order("created_at DESC")
}
