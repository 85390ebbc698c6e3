package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Provenance string

const (
	ProvenanceLive   Provenance = "live"
	ProvenanceCached Provenance = "cached"
	ProvenanceMock   Provenance = "mock"
)

// Standard line item names produced by financial-data providers.
const (
	ItemRevenue         = "revenue"
	ItemOperatingIncome = "operating_income"
	ItemNetIncome       = "net_income"
)

type FinancialFacts struct {
	Id          uuid.UUID
	Subject     string
	Period      string
	SubjectName string
	Items       map[string]decimal.Decimal
	Provenance  Provenance
	FetchedAt   time.Time
}

func (f *FinancialFacts) Item(name string) (decimal.Decimal, bool) {
	if f == nil || f.Items == nil {
		return decimal.Zero, false
	}
	v, ok := f.Items[name]
	return v, ok
}

// DisplayName falls back to the subject code when the provider gave no name.
func (f *FinancialFacts) DisplayName() string {
	if f.SubjectName != "" {
		return f.SubjectName
	}
	return f.Subject
}

// Clone returns a deep copy so cache tiers never share item maps.
func (f *FinancialFacts) Clone() *FinancialFacts {
	if f == nil {
		return nil
	}
	c := *f
	c.Items = make(map[string]decimal.Decimal, len(f.Items))
	for k, v := range f.Items {
		c.Items[k] = v
	}
	return &c
}
