// Package report renders accepted calculations to PDF and stores them.
package report

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/retrieval"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

type Materializer struct {
	renderer Renderer
	storage  ObjectStorage
	timeout  time.Duration
	logger   logger.ILogger
	now      func() time.Time
}

func NewMaterializer(renderer Renderer, storage ObjectStorage, timeout time.Duration, logger logger.ILogger) *Materializer {
	if renderer == nil {
		renderer = NewPDFRenderer()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Materializer{
		renderer: renderer,
		storage:  storage,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Materializer) WithClock(now func() time.Time) *Materializer {
	m.now = now
	return m
}

func (m *Materializer) Backend() string {
	return m.storage.Name()
}

// Materialize renders result and stores the blob. The returned artifact is
// not persisted; the caller writes it in its own unit of work and calls
// Discard when that fails.
func (m *Materializer) Materialize(ctx context.Context, result *entity.CalcResult, facts *entity.FinancialFacts, comparison *retrieval.Comparison) (*entity.ReportArtifact, error) {
	const op = "report.Materialize"
	if result == nil {
		return nil, apperror.New(apperror.KindRender, op, "no result to render")
	}
	if result.Status != entity.CalcStatusAccepted {
		return nil, apperror.New(apperror.KindRender, op, fmt.Sprintf("result %s is %s, only accepted results are reported", result.Id, result.Status))
	}

	data, err := m.renderer.Render(result, facts, comparison)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindRender, op, err)
	}
	if len(data) == 0 {
		return nil, apperror.New(apperror.KindRender, op, "renderer produced no output")
	}

	key := fmt.Sprintf("reports/%s/%s.pdf", result.Subject, result.Id)

	putCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	handle, err := m.storage.Put(putCtx, key, data)
	if err != nil {
		m.logger.Error("REPORT", "Failed to store report", map[string]interface{}{
			"calc_result_id": result.Id.String(),
			"backend":        m.storage.Name(),
			"error":          err.Error(),
		})
		return nil, apperror.Wrap(apperror.KindRender, op, fmt.Errorf("store report: %w", err))
	}

	artifact := &entity.ReportArtifact{
		Id:             uuid.New(),
		CalcResultId:   result.Id,
		StorageBackend: m.storage.Name(),
		StorageHandle:  handle,
		Checksum:       Checksum(data),
		SizeBytes:      int64(len(data)),
		CreatedAt:      m.now(),
	}
	m.logger.Info("REPORT", "Report stored", map[string]interface{}{
		"calc_result_id": result.Id.String(),
		"handle":         handle,
		"size_bytes":     artifact.SizeBytes,
	})
	return artifact, nil
}

// Discard removes a stored blob whose artifact row never committed.
func (m *Materializer) Discard(ctx context.Context, artifact *entity.ReportArtifact) error {
	if artifact == nil {
		return nil
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	if err := m.storage.Delete(delCtx, artifact.StorageHandle); err != nil {
		m.logger.Warn("REPORT", "Failed to remove orphaned report blob", map[string]interface{}{
			"handle": artifact.StorageHandle,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// Open streams a stored report.
func (m *Materializer) Open(ctx context.Context, artifact *entity.ReportArtifact) (io.ReadCloser, error) {
	if artifact.StorageBackend != m.storage.Name() {
		return nil, apperror.New(apperror.KindNotFound, "report.Open", fmt.Sprintf("report stored on %q, this server uses %q", artifact.StorageBackend, m.storage.Name()))
	}
	r, err := m.storage.Open(ctx, artifact.StorageHandle)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, apperror.Wrap(apperror.KindNotFound, "report.Open", err)
	}
	if err != nil {
		return nil, apperror.FromExternal("report.Open", err, apperror.KindInternal)
	}
	return r, nil
}

// Checksum is the hex blake2b-256 digest stored on artifacts.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
