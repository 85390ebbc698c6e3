package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CalcStatus string

const (
	CalcStatusPending  CalcStatus = "pending"
	CalcStatusAccepted CalcStatus = "accepted"
	CalcStatusRejected CalcStatus = "rejected"
)

type LineItem struct {
	Name   string
	Amount decimal.Decimal
}

type CalcResult struct {
	Id              uuid.UUID
	SessionId       uuid.UUID
	Subject         string
	SubjectName     string
	Period          string
	SnapshotVersion string
	Formula         string
	FactsId         uuid.UUID
	Provenance      Provenance
	LineItems       []LineItem
	Total           decimal.Decimal
	MissingFacts    []string
	Confidence      float64
	Concerns        []string
	Status          CalcStatus
	Attempt         int
	Strategy        string
	CreatedAt       time.Time
}

func (r *CalcResult) LineItem(name string) (decimal.Decimal, bool) {
	for _, li := range r.LineItems {
		if li.Name == name {
			return li.Amount, true
		}
	}
	return decimal.Zero, false
}

func (r *CalcResult) IsTerminal() bool {
	return r.Status == CalcStatusAccepted || r.Status == CalcStatusRejected
}
