package entity

import (
	"time"

	"github.com/google/uuid"
)

// Parameter is one opaque named value of a snapshot. Values are kept as
// strings so decimal precision survives storage.
type Parameter struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type ParameterSnapshot struct {
	Id            uuid.UUID
	Version       string
	Formula       string
	Description   string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Parameters    []Parameter
	CreatedAt     time.Time
}

func (s *ParameterSnapshot) Lookup(name string) (string, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Covers reports whether the snapshot's effective range overlaps [start, end].
func (s *ParameterSnapshot) Covers(start, end time.Time) bool {
	if s.EffectiveFrom.After(end) {
		return false
	}
	if s.EffectiveTo != nil && s.EffectiveTo.Before(start) {
		return false
	}
	return true
}

// EffectiveAt reports whether the snapshot is in force at t.
func (s *ParameterSnapshot) EffectiveAt(t time.Time) bool {
	return s.Covers(t, t)
}
