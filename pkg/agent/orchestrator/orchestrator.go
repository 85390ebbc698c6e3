package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"corp-tax-agent-be/internal/constant"
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/agent/intent"
	"corp-tax-agent-be/pkg/agent/response"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/events"
	"corp-tax-agent-be/pkg/financial"
	"corp-tax-agent-be/pkg/llm"
	"corp-tax-agent-be/pkg/report"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/calc"
	"corp-tax-agent-be/pkg/tax/evaluator"
	"corp-tax-agent-be/pkg/tax/snapshot"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultHistoryTurns = 10

// Deps are the collaborators of an Orchestrator. Publisher, Retry, Locker
// and StageLog are optional.
type Deps struct {
	UowFactory   unitofwork.RepositoryFactory
	Extractor    *intent.Extractor
	Cache        *financial.Cache
	Loader       *snapshot.Loader
	Engine       *calc.Engine
	Evaluator    *evaluator.Evaluator
	Store        *retrieval.Store
	Materializer *report.Materializer
	Summarizer   *response.Summarizer
	Publisher    events.Publisher
	Retry        *RetryPolicy
	Locker       *SessionLocker
	Logger       logger.ILogger
	StageLog     *log.Logger
	HistoryTurns int
}

type Orchestrator struct {
	uowFactory   unitofwork.RepositoryFactory
	extractor    *intent.Extractor
	cache        *financial.Cache
	loader       *snapshot.Loader
	engine       *calc.Engine
	evaluator    *evaluator.Evaluator
	store        *retrieval.Store
	materializer *report.Materializer
	summarizer   *response.Summarizer
	publisher    events.Publisher
	retry        *RetryPolicy
	locker       *SessionLocker
	router       *Router
	logger       logger.ILogger
	stageLog     *log.Logger
	tracer       trace.Tracer
	historyTurns int
	now          func() time.Time
}

func New(d Deps) *Orchestrator {
	if d.Retry == nil {
		d.Retry, _ = NewRetryPolicy(nil)
	}
	if d.Locker == nil {
		d.Locker = NewSessionLocker()
	}
	if d.StageLog == nil {
		d.StageLog = log.New(io.Discard, "", 0)
	}
	if d.HistoryTurns <= 0 {
		d.HistoryTurns = defaultHistoryTurns
	}

	o := &Orchestrator{
		uowFactory:   d.UowFactory,
		extractor:    d.Extractor,
		cache:        d.Cache,
		loader:       d.Loader,
		engine:       d.Engine,
		evaluator:    d.Evaluator,
		store:        d.Store,
		materializer: d.Materializer,
		summarizer:   d.Summarizer,
		publisher:    d.Publisher,
		retry:        d.Retry,
		locker:       d.Locker,
		logger:       d.Logger,
		stageLog:     d.StageLog,
		tracer:       otel.Tracer("orchestrator"),
		historyTurns: d.HistoryTurns,
		now:          func() time.Time { return time.Now().UTC() },
	}
	o.router = NewRouter(
		Route{Tag: intent.TagCalculate, Handler: o.handleCalculate},
		Route{Tag: intent.TagCompare, Handler: o.handleCompare},
		Route{Tag: intent.TagReport, Handler: o.handleReport},
	)
	return o
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) Router() *Router {
	return o.router
}

// HandleTurn runs one user message to completion. Turns of the same session
// run one at a time. Pipeline failures come back as a reply with ErrorKind
// set; the error return is reserved for an unknown session and storage
// failures around the turn itself.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID uuid.UUID, text string) (*TurnReply, error) {
	unlock, err := o.locker.Lock(ctx, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := o.tracer.Start(ctx, "HandleTurn", trace.WithAttributes(attribute.String("session.id", sessionID.String())))
	defer span.End()

	uow := o.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.New(apperror.KindNotFound, "orchestrator.HandleTurn", "session not found")
	}

	history, err := o.history(ctx, uow, sessionID)
	if err != nil {
		return nil, err
	}

	userTurn := &entity.Turn{SessionId: sessionID, Role: entity.TurnRoleUser, Text: text, CreatedAt: o.now()}
	if err := uow.TurnRepository().Append(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	reply := o.dispatch(ctx, session, text, history)
	reply.SessionId = sessionID

	// the turn is recorded even when the caller has gone away
	bookkeeping := context.WithoutCancel(ctx)
	agentTurn := &entity.Turn{
		SessionId:    sessionID,
		Role:         entity.TurnRoleAgent,
		Text:         reply.Reply,
		CalcResultId: reply.CalcResultId,
		ErrorKind:    string(reply.ErrorKind),
		CreatedAt:    o.now(),
	}
	if err := uow.TurnRepository().Append(bookkeeping, agentTurn); err != nil {
		return nil, fmt.Errorf("append agent turn: %w", err)
	}
	if err := uow.SessionRepository().Touch(bookkeeping, sessionID, o.now()); err != nil {
		o.logger.Warn("ORCHESTRATOR", "Failed to touch session", map[string]interface{}{
			"session_id": sessionID.String(),
			"error":      err.Error(),
		})
	}

	span.SetAttributes(attribute.String("turn.status", string(reply.Status)))
	o.publish(bookkeeping, events.TypeTurnCompleted, sessionID, map[string]interface{}{
		"status":     string(reply.Status),
		"intent":     reply.Intent,
		"error_kind": string(reply.ErrorKind),
	})
	return reply, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, session *entity.Session, text string, history []llm.Message) *TurnReply {
	var in *intent.Intent
	err := o.stage(ctx, session.Id, StagePlan, 0, func(ctx context.Context) error {
		var err error
		in, err = o.extractor.Extract(ctx, text, history)
		return err
	})
	if err != nil {
		return o.failure(session.Id, &TurnReply{}, err)
	}

	handler, ok := o.router.Lookup(in.Tag)
	if !ok {
		return o.failure(session.Id, &TurnReply{}, apperror.New(apperror.KindIntentParse, "orchestrator.dispatch", "no route for "+in.Tag))
	}

	reply, err := handler(ctx, &Run{Session: session, Intent: in, Text: text, History: history})
	if reply == nil {
		reply = &TurnReply{}
	}
	reply.Intent = in.Tag
	if err != nil {
		return o.failure(session.Id, reply, err)
	}
	o.enter(ctx, session.Id, StageDone, 0)
	return reply
}

// #region calculate

func (o *Orchestrator) handleCalculate(ctx context.Context, run *Run) (*TurnReply, error) {
	in := run.Intent
	sid := run.Session.Id
	version := in.SnapshotVersion
	if version == "" {
		version = snapshot.Current
	}
	maxRetries := o.evaluator.Options().MaxRetries
	reply := &TurnReply{}

	for attempt := 1; ; attempt++ {
		strategy := o.retry.ForAttempt(attempt)

		var facts *entity.FinancialFacts
		err := o.stage(ctx, sid, StageFetch, attempt, func(ctx context.Context) error {
			var err error
			facts, err = o.cache.Get(ctx, in.Subject, in.Period, financial.GetOptions{BypassCache: strategy.BypassCache})
			return err
		})
		if err != nil {
			if apperror.IsRetryable(err) && attempt <= maxRetries {
				o.enter(ctx, sid, StageRetry, attempt)
				continue
			}
			return reply, err
		}

		var snap *entity.ParameterSnapshot
		err = o.stage(ctx, sid, StageParam, attempt, func(ctx context.Context) error {
			var err error
			snap, err = o.loader.Load(ctx, version, in.Period)
			return err
		})
		if err != nil {
			return reply, err
		}

		var result *entity.CalcResult
		err = o.stage(ctx, sid, StageCalc, attempt, func(ctx context.Context) error {
			var err error
			result, err = o.engine.Compute(facts, snap)
			if err != nil {
				return err
			}
			result.SessionId = sid
			result.Attempt = attempt
			result.Strategy = string(strategy.ID)
			result.CreatedAt = o.now()
			return o.uowFactory.NewUnitOfWork(ctx).CalcResultRepository().Create(ctx, result)
		})
		if err != nil {
			return reply, err
		}
		id := result.Id
		reply.CalcResultId = &id

		var ev evaluator.Evaluation
		var decision evaluator.Decision
		_ = o.stage(ctx, sid, StageEval, attempt, func(ctx context.Context) error {
			ev = o.evaluator.Evaluate(result, facts)
			decision = o.evaluator.Decide(ev)
			return nil
		})
		reply.Evaluation = &ev

		switch decision {
		case evaluator.DecisionAccept:
			if err := o.finalize(ctx, result, entity.CalcStatusAccepted, ev); err != nil {
				return reply, err
			}
			o.enter(ctx, sid, StageAccept, attempt)
			return o.deliver(ctx, run, result, facts, reply), nil

		case evaluator.DecisionRetry:
			if err := o.finalize(ctx, result, entity.CalcStatusRejected, ev); err != nil {
				return reply, err
			}
			o.enter(ctx, sid, StageRetry, attempt)

		default:
			if err := o.finalize(ctx, result, entity.CalcStatusRejected, ev); err != nil {
				return reply, err
			}
			o.enter(ctx, sid, StageFail, attempt)
			return reply, apperror.New(apperror.KindLowConfidence, "orchestrator.calculate",
				fmt.Sprintf("score %.4f after %d attempt(s)", ev.Score, attempt))
		}
	}
}

// finalize moves a pending result to its terminal status. It ignores
// cancellation so a result never stays pending.
func (o *Orchestrator) finalize(ctx context.Context, result *entity.CalcResult, status entity.CalcStatus, ev evaluator.Evaluation) error {
	ctx = context.WithoutCancel(ctx)
	repo := o.uowFactory.NewUnitOfWork(ctx).CalcResultRepository()
	if err := repo.Finalize(ctx, result.Id, status, ev.Score, ev.Concerns); err != nil {
		return fmt.Errorf("finalize calc result %s: %w", result.Id, err)
	}
	result.Status = status
	result.Confidence = ev.Score
	result.Concerns = ev.Concerns

	eventType := events.TypeResultAccepted
	if status == entity.CalcStatusRejected {
		eventType = events.TypeResultRejected
	}
	o.publish(ctx, eventType, result.SessionId, map[string]interface{}{
		"calc_result_id": result.Id.String(),
		"subject":        result.Subject,
		"period":         result.Period,
		"attempt":        result.Attempt,
		"confidence":     ev.Score,
		"total":          result.Total.String(),
	})
	return nil
}

// #endregion

// #region report

// deliver runs REPORT for an accepted result and phrases the reply. A report
// failure leaves the result accepted and turns the reply partial.
func (o *Orchestrator) deliver(ctx context.Context, run *Run, result *entity.CalcResult, facts *entity.FinancialFacts, reply *TurnReply) *TurnReply {
	sid := run.Session.Id
	id := result.Id
	reply.CalcResultId = &id
	reply.Status = StatusAccepted

	query := fmt.Sprintf("%s %s corporate tax", result.Subject, result.Period)
	cmp, err := o.store.Compare(ctx, result.Subject, query, result)
	if err != nil {
		o.logger.Warn("ORCHESTRATOR", "Comparison for report failed", map[string]interface{}{
			"calc_result_id": result.Id.String(),
			"error":          err.Error(),
		})
		cmp = nil
	}
	if !cmp.Empty() {
		reply.Comparison = cmp
	}

	var artifact *entity.ReportArtifact
	err = o.stage(ctx, sid, StageReport, result.Attempt, func(ctx context.Context) error {
		var err error
		artifact, err = o.materialize(ctx, result, facts, cmp)
		return err
	})
	if err != nil {
		reply.Status = StatusPartial
		reply.ErrorKind = apperror.KindRender
		reply.Reply = o.summarizer.Result(ctx, result, err)
		o.logger.Error("ORCHESTRATOR", "Report failed", map[string]interface{}{
			"calc_result_id": result.Id.String(),
			"error":          err.Error(),
		})
		o.publish(ctx, events.TypeReportFailed, sid, map[string]interface{}{
			"calc_result_id": result.Id.String(),
			"error_kind":     string(apperror.KindOf(err)),
		})
		return reply
	}

	reply.Artifact = newArtifactHandle(artifact)
	reply.Reply = o.summarizer.Result(ctx, result, nil)
	o.publish(ctx, events.TypeReportMaterialized, sid, map[string]interface{}{
		"calc_result_id": result.Id.String(),
		"report_id":      artifact.Id.String(),
		"checksum":       artifact.Checksum,
	})
	return reply
}

// materialize renders and embeds outside any transaction, then writes the
// artifact, the retrieval document and its terms in one unit of work. When
// anything fails the stored blob is removed.
func (o *Orchestrator) materialize(ctx context.Context, result *entity.CalcResult, facts *entity.FinancialFacts, cmp *retrieval.Comparison) (*entity.ReportArtifact, error) {
	const op = "orchestrator.report"

	artifact, err := o.materializer.Materialize(ctx, result, facts, cmp)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*entity.ReportArtifact, error) {
		if derr := o.materializer.Discard(context.WithoutCancel(ctx), artifact); derr != nil {
			o.logger.Warn("ORCHESTRATOR", "Discarding report blob failed", map[string]interface{}{
				"calc_result_id": result.Id.String(),
				"handle":         artifact.StorageHandle,
				"error":          derr.Error(),
			})
		}
		if apperror.IsKind(err, apperror.KindRender) {
			return nil, err
		}
		return nil, apperror.Wrap(apperror.KindRender, op, err)
	}

	prepared, err := o.store.Prepare(ctx, retrieval.NewDocument(result))
	if err != nil {
		return fail(err)
	}

	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fail(err)
	}
	defer uow.Rollback()

	if err := uow.ReportArtifactRepository().Create(ctx, artifact); err != nil {
		return fail(fmt.Errorf("create report artifact: %w", err))
	}
	if err := o.store.Persist(ctx, uow, prepared); err != nil {
		return fail(err)
	}
	if err := uow.Commit(); err != nil {
		return fail(err)
	}
	return artifact, nil
}

// handleReport re-materializes the newest accepted result of the session
// that has no report yet. When every accepted result already has one, the
// newest report is returned.
func (o *Orchestrator) handleReport(ctx context.Context, run *Run) (*TurnReply, error) {
	sid := run.Session.Id
	uow := o.uowFactory.NewUnitOfWork(ctx)

	pending, err := uow.CalcResultRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sid},
		specification.ByCalcStatus{Status: entity.CalcStatusAccepted},
		specification.WithoutReport{},
		specification.Newest{},
		specification.Pagination{Limit: 1},
	)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		latest, err := uow.CalcResultRepository().FindOne(ctx,
			specification.BySessionID{SessionID: sid},
			specification.ByCalcStatus{Status: entity.CalcStatusAccepted},
			specification.Newest{},
		)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, apperror.New(apperror.KindNotFound, "orchestrator.report", "no accepted result in session")
		}
		artifact, err := uow.ReportArtifactRepository().FindOne(ctx, specification.ByCalcResultID{CalcResultID: latest.Id})
		if err != nil {
			return nil, err
		}
		if artifact == nil {
			return nil, apperror.New(apperror.KindNotFound, "orchestrator.report", "report missing for "+latest.Id.String())
		}
		id := latest.Id
		return &TurnReply{
			Status:       StatusAccepted,
			CalcResultId: &id,
			Artifact:     newArtifactHandle(artifact),
			Reply:        fmt.Sprintf("The report for %s %s is ready.", latest.Subject, latest.Period),
		}, nil
	}

	result := pending[0]
	var facts *entity.FinancialFacts
	if result.FactsId != uuid.Nil {
		facts, err = uow.FinancialFactsRepository().FindOne(ctx, specification.ByID{ID: result.FactsId})
		if err != nil {
			return nil, err
		}
	}
	return o.deliver(ctx, run, result, facts, &TurnReply{}), nil
}

// #endregion

// #region compare

// handleCompare lines up earlier results of the subject against the
// session's newest accepted one. It creates no result.
func (o *Orchestrator) handleCompare(ctx context.Context, run *Run) (*TurnReply, error) {
	sid := run.Session.Id
	subject := run.Intent.Subject

	specs := []specification.Specification{
		specification.BySessionID{SessionID: sid},
		specification.ByCalcStatus{Status: entity.CalcStatusAccepted},
	}
	if subject != "" {
		specs = append(specs, specification.BySubject{Subject: subject})
	}
	specs = append(specs, specification.Newest{})

	reference, err := o.uowFactory.NewUnitOfWork(ctx).CalcResultRepository().FindOne(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if subject == "" && reference != nil {
		subject = reference.Subject
	}
	if subject == "" {
		return nil, apperror.New(apperror.KindIntentParse, "orchestrator.compare", "no company to compare")
	}

	var cmp *retrieval.Comparison
	err = o.stage(ctx, sid, StageCompare, 0, func(ctx context.Context) error {
		var err error
		cmp, err = o.store.Compare(ctx, subject, run.Text, reference)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &TurnReply{
		Status:     StatusOK,
		Comparison: cmp,
		Reply:      o.summarizer.Comparison(ctx, cmp),
	}, nil
}

// #endregion

// #region plumbing

func (o *Orchestrator) history(ctx context.Context, uow unitofwork.UnitOfWork, sessionID uuid.UUID) ([]llm.Message, error) {
	turns, err := uow.TurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.LastTurns{N: o.historyTurns},
	)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		role := constant.ChatMessageRoleUser
		if turns[i].Role == entity.TurnRoleAgent {
			role = constant.ChatMessageRoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: turns[i].Text})
	}
	return history, nil
}

func (o *Orchestrator) stage(ctx context.Context, sessionID uuid.UUID, stage Stage, attempt int, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "stage."+string(stage), trace.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.Int("attempt", attempt),
	))
	defer span.End()

	o.enter(ctx, sessionID, stage, attempt)
	start := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.KindOf(err)))
		o.stageLog.Printf("[%s] failed after %s: %v", stage, time.Since(start), err)
		return err
	}
	o.stageLog.Printf("[%s] done in %s", stage, time.Since(start))
	return nil
}

func (o *Orchestrator) enter(ctx context.Context, sessionID uuid.UUID, stage Stage, attempt int) {
	o.stageLog.Printf("[%s] session=%s attempt=%d", stage, sessionID, attempt)
	o.publish(ctx, events.TypeStageEntered, sessionID, map[string]interface{}{
		"stage":   string(stage),
		"attempt": attempt,
	})
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, sessionID uuid.UUID, data map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	evt := events.NewPipelineEvent(eventType, sessionID.String(), data)
	if err := o.publisher.Publish(ctx, evt); err != nil {
		o.logger.Warn("ORCHESTRATOR", "Failed to publish pipeline event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) failure(sessionID uuid.UUID, reply *TurnReply, err error) *TurnReply {
	kind := apperror.KindOf(err)
	reply.ErrorKind = kind
	switch kind {
	case apperror.KindIntentParse:
		reply.Status = StatusClarify
	case apperror.KindLowConfidence:
		reply.Status = StatusRejected
	default:
		reply.Status = StatusFailed
	}
	reply.Reply = response.Failure(kind, reply.Evaluation)

	details := map[string]interface{}{
		"session_id": sessionID.String(),
		"error_kind": string(kind),
		"error":      err.Error(),
	}
	if kind == apperror.KindInternal {
		o.logger.Error("ORCHESTRATOR", "Turn failed", details)
	} else {
		o.logger.Info("ORCHESTRATOR", "Turn ended without result", details)
	}
	return reply
}

// #endregion
