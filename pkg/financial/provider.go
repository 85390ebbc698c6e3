// Package financial fetches per-subject financial facts and caches them with
// a staleness window.
package financial

import (
	"context"
	"errors"

	"corp-tax-agent-be/internal/entity"
)

// ErrUnreachable marks a provider failure that a mock fallback may cover:
// the upstream could not be contacted or answered with a transport error.
var ErrUnreachable = errors.New("financial data provider unreachable")

// ErrNoData is returned when the upstream answered but holds nothing for the
// requested subject and period.
var ErrNoData = errors.New("no financial data for subject and period")

type Provider interface {
	Name() string
	Fetch(ctx context.Context, subject, period string) (*entity.FinancialFacts, error)
}
