package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type CreateSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type TurnRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Text      string    `json:"text" validate:"required,max=2000"`
}

// TurnResponse is the reply to one chat turn. ReportId and DownloadURL are
// set only when a report was produced.
type TurnResponse struct {
	SessionId    uuid.UUID          `json:"session_id"`
	ReplyText    string             `json:"reply_text"`
	Status       string             `json:"status"`
	Intent       string             `json:"intent,omitempty"`
	ErrorKind    string             `json:"error_kind,omitempty"`
	CalcResultId *uuid.UUID         `json:"calc_result_id,omitempty"`
	ReportId     *uuid.UUID         `json:"report_id,omitempty"`
	DownloadURL  string             `json:"download_url,omitempty"`
	Confidence   *float64           `json:"confidence,omitempty"`
	Comparison   []ComparisonRowDTO `json:"comparison,omitempty"`
}

type ComparisonRowDTO struct {
	CalcResultId    uuid.UUID `json:"calc_result_id"`
	Subject         string    `json:"subject"`
	Period          string    `json:"period"`
	SnapshotVersion string    `json:"snapshot_version"`
	Provenance      string    `json:"provenance"`
	Total           string    `json:"total"`
	ChangePct       *string   `json:"change_pct"`
}

type TurnHistoryResponse struct {
	Seq          int        `json:"seq"`
	Role         string     `json:"role"`
	Text         string     `json:"text"`
	CalcResultId *uuid.UUID `json:"calc_result_id,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
