package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// TurnOrder returns a session's turns oldest first.
type TurnOrder struct{}

func (s TurnOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// LastTurns keeps the most recent N turns (still ordered newest first; callers reverse).
type LastTurns struct {
	N int
}

func (s LastTurns) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq DESC").Limit(s.N)
}
