// Package orchestrator drives a turn through
// PLAN, FETCH, PARAM, CALC, EVAL, ACCEPT|RETRY|FAIL, REPORT and DONE.
package orchestrator

import (
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/agent/intent"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/llm"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/evaluator"

	"github.com/google/uuid"
)

// #region stages

type Stage string

const (
	StagePlan    Stage = "PLAN"
	StageFetch   Stage = "FETCH"
	StageParam   Stage = "PARAM"
	StageCalc    Stage = "CALC"
	StageEval    Stage = "EVAL"
	StageAccept  Stage = "ACCEPT"
	StageRetry   Stage = "RETRY"
	StageFail    Stage = "FAIL"
	StageReport  Stage = "REPORT"
	StageCompare Stage = "COMPARE"
	StageDone    Stage = "DONE"
)

// #endregion

// #region reply

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	// StatusPartial is an accepted result whose report failed.
	StatusPartial Status = "partial"
	StatusClarify Status = "clarify"
	StatusFailed  Status = "failed"
	StatusOK      Status = "ok"
)

// ArtifactHandle points at a stored report.
type ArtifactHandle struct {
	ReportId     uuid.UUID
	CalcResultId uuid.UUID
	Backend      string
	Handle       string
	Checksum     string
	SizeBytes    int64
}

func newArtifactHandle(a *entity.ReportArtifact) *ArtifactHandle {
	return &ArtifactHandle{
		ReportId:     a.Id,
		CalcResultId: a.CalcResultId,
		Backend:      a.StorageBackend,
		Handle:       a.StorageHandle,
		Checksum:     a.Checksum,
		SizeBytes:    a.SizeBytes,
	}
}

// TurnReply is what a turn produces for the caller.
type TurnReply struct {
	SessionId    uuid.UUID
	Reply        string
	Status       Status
	Intent       string
	ErrorKind    apperror.Kind
	CalcResultId *uuid.UUID
	Artifact     *ArtifactHandle
	Comparison   *retrieval.Comparison
	Evaluation   *evaluator.Evaluation
}

// #endregion

// Run is the state a route handler works with.
type Run struct {
	Session *entity.Session
	Intent  *intent.Intent
	Text    string
	History []llm.Message
}
