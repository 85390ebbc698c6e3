package entity

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	Id           uuid.UUID
	Title        string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleAgent TurnRole = "agent"
)

// Turn is one append-only message in a session.
type Turn struct {
	Id           uuid.UUID
	SessionId    uuid.UUID
	Seq          int
	Role         TurnRole
	Text         string
	CalcResultId *uuid.UUID
	ErrorKind    string
	CreatedAt    time.Time
}
