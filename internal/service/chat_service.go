package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/agent/orchestrator"
	"corp-tax-agent-be/pkg/apperror"

	"github.com/google/uuid"
)

type IChatService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
	ListTurns(ctx context.Context, sessionId uuid.UUID) ([]*dto.TurnHistoryResponse, error)
}

// TurnHandler is the part of the orchestrator the chat service drives.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID uuid.UUID, text string) (*orchestrator.TurnReply, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	agent      TurnHandler
	baseURL    string
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, agent TurnHandler, baseURL string) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		agent:      agent,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (s *chatService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	now := time.Now().UTC()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Session " + now.Format("2006-01-02 15:04")
	}

	session := &entity.Session{Title: title, CreatedAt: now, LastActiveAt: now}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{
		Id:        session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	}, nil
}

func (s *chatService) Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	reply, err := s.agent.HandleTurn(ctx, req.SessionId, strings.TrimSpace(req.Text))
	if err != nil {
		return nil, err
	}

	res := &dto.TurnResponse{
		SessionId:    reply.SessionId,
		ReplyText:    reply.Reply,
		Status:       string(reply.Status),
		Intent:       reply.Intent,
		ErrorKind:    string(reply.ErrorKind),
		CalcResultId: reply.CalcResultId,
	}
	if reply.Evaluation != nil {
		score := reply.Evaluation.Score
		res.Confidence = &score
	}
	if reply.Artifact != nil {
		id := reply.Artifact.ReportId
		res.ReportId = &id
		res.DownloadURL = s.downloadURL(id)
	}
	if reply.Comparison != nil {
		for _, row := range reply.Comparison.Rows {
			item := dto.ComparisonRowDTO{
				CalcResultId:    row.CalcResultId,
				Subject:         row.Subject,
				Period:          row.Period,
				SnapshotVersion: row.SnapshotVersion,
				Provenance:      string(row.Provenance),
				Total:           row.Total.String(),
			}
			if row.ChangePct != nil {
				pct := row.ChangePct.StringFixed(2)
				item.ChangePct = &pct
			}
			res.Comparison = append(res.Comparison, item)
		}
	}
	return res, nil
}

func (s *chatService) ListTurns(ctx context.Context, sessionId uuid.UUID) ([]*dto.TurnHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.New(apperror.KindNotFound, "chat.ListTurns", "session not found")
	}

	turns, err := uow.TurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.TurnOrder{},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.TurnHistoryResponse, 0, len(turns))
	for _, t := range turns {
		result = append(result, &dto.TurnHistoryResponse{
			Seq:          t.Seq,
			Role:         string(t.Role),
			Text:         t.Text,
			CalcResultId: t.CalcResultId,
			ErrorKind:    t.ErrorKind,
			CreatedAt:    t.CreatedAt,
		})
	}
	return result, nil
}

func (s *chatService) downloadURL(reportId uuid.UUID) string {
	return fmt.Sprintf("%s/api/report/v1/%s/download", s.baseURL, reportId)
}
