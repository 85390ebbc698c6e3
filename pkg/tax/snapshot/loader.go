// Package snapshot resolves the immutable parameter sets the calculation
// engine runs against.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/apperror"
)

// Current asks the loader for the newest snapshot in force for a period.
const Current = "current"

type Loader struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewLoader(uowFactory unitofwork.RepositoryFactory, logger logger.ILogger) *Loader {
	return &Loader{
		uowFactory: uowFactory,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the loader's notion of "now".
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Load returns the snapshot named by version. For Current it picks the snapshot
// with the latest effective_from that is already in force and overlaps the
// period. An explicit version is returned as stored.
func (l *Loader) Load(ctx context.Context, version, period string) (*entity.ParameterSnapshot, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ParameterSnapshotRepository()

	if version != "" && version != Current {
		snap, err := repo.FindOne(ctx, specification.ByVersion{Version: version})
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "snapshot.Load", err)
		}
		if snap == nil {
			return nil, apperror.New(apperror.KindSnapshotNotFound, "snapshot.Load", fmt.Sprintf("no snapshot with version %q", version))
		}
		return snap, nil
	}

	start, end, err := PeriodRange(period)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSnapshotNotFound, "snapshot.Load", err)
	}

	snap, err := repo.FindOne(ctx,
		specification.EffectiveBy{At: l.now()},
		specification.CoveringRange{Start: start, End: end},
		specification.LatestEffective{},
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "snapshot.Load", err)
	}
	if snap == nil {
		return nil, apperror.New(apperror.KindSnapshotNotFound, "snapshot.Load", fmt.Sprintf("no snapshot in force covers period %s", period))
	}

	l.logger.Debug("SNAPSHOT", "Resolved current snapshot", map[string]interface{}{
		"period":  period,
		"version": snap.Version,
	})
	return snap, nil
}

func (l *Loader) List(ctx context.Context) ([]*entity.ParameterSnapshot, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	return uow.ParameterSnapshotRepository().FindAll(ctx, specification.LatestEffective{})
}

// Create stores a new snapshot. Existing versions are never overwritten.
func (l *Loader) Create(ctx context.Context, snap *entity.ParameterSnapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	uow := l.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ParameterSnapshotRepository().Create(ctx, snap); err != nil {
		if errors.Is(err, contract.ErrDuplicateVersion) {
			return apperror.New(apperror.KindValidation, "snapshot.Create", fmt.Sprintf("version %q already exists", snap.Version))
		}
		return apperror.Wrap(apperror.KindInternal, "snapshot.Create", err)
	}

	l.logger.Info("SNAPSHOT", "Snapshot created", map[string]interface{}{
		"version":        snap.Version,
		"formula":        snap.Formula,
		"effective_from": snap.EffectiveFrom.Format("2006-01-02"),
	})
	return nil
}

func Validate(snap *entity.ParameterSnapshot) error {
	switch {
	case snap.Version == "" || snap.Version == Current:
		return apperror.New(apperror.KindValidation, "snapshot.Validate", "version is required and may not be \"current\"")
	case snap.Formula == "":
		return apperror.New(apperror.KindValidation, "snapshot.Validate", "formula is required")
	case snap.EffectiveFrom.IsZero():
		return apperror.New(apperror.KindValidation, "snapshot.Validate", "effective_from is required")
	case snap.EffectiveTo != nil && snap.EffectiveTo.Before(snap.EffectiveFrom):
		return apperror.New(apperror.KindValidation, "snapshot.Validate", "effective_to precedes effective_from")
	}
	seen := make(map[string]struct{}, len(snap.Parameters))
	for _, p := range snap.Parameters {
		if _, dup := seen[p.Name]; dup {
			return apperror.New(apperror.KindValidation, "snapshot.Validate", fmt.Sprintf("parameter %q listed twice", p.Name))
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
