package calc

import (
	"fmt"
	"strings"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/apperror"

	"github.com/shopspring/decimal"
)

// Params reads snapshot parameters and remembers every name that was absent
// or malformed, so a formula can report them all at once.
type Params struct {
	snapshot *entity.ParameterSnapshot
	missing  []string
}

func NewParams(snapshot *entity.ParameterSnapshot) Params {
	return Params{snapshot: snapshot}
}

func (p *Params) Has(name string) bool {
	_, ok := p.snapshot.Lookup(name)
	return ok
}

func (p *Params) String(name string) string {
	v, ok := p.snapshot.Lookup(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		p.missing = append(p.missing, name)
		return ""
	}
	return v
}

func (p *Params) Decimal(name string) decimal.Decimal {
	v, ok := p.snapshot.Lookup(name)
	if !ok {
		p.missing = append(p.missing, name)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		p.missing = append(p.missing, fmt.Sprintf("%s (invalid %q)", name, v))
		return decimal.Zero
	}
	return d
}

// Err returns a ParameterMissing error naming everything collected so far.
func (p *Params) Err(formula string) error {
	if len(p.missing) == 0 {
		return nil
	}
	cause := &MissingParametersError{Formula: formula, Names: append([]string(nil), p.missing...)}
	return &apperror.Error{
		Kind:    apperror.KindParameterMissing,
		Op:      "calc." + formula,
		Message: cause.Error(),
		Err:     cause,
	}
}
