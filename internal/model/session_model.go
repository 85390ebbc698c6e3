package model

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	LastActiveAt time.Time `gorm:"index"`
}

func (Session) TableName() string {
	return "sessions"
}

// Turn rows are append-only; (session_id, seq) is unique so concurrent
// writers cannot interleave a session's history.
type Turn struct {
	Id           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionId    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_turns_session_seq"`
	Seq          int        `gorm:"not null;uniqueIndex:idx_turns_session_seq"`
	Role         string     `gorm:"type:varchar(16);not null"`
	Text         string     `gorm:"type:text;not null"`
	CalcResultId *uuid.UUID `gorm:"type:uuid;index"`
	ErrorKind    string     `gorm:"type:varchar(32)"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
}

func (Turn) TableName() string {
	return "turns"
}
