package specification

import (
	"corp-tax-agent-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySubject struct {
	Subject string
}

func (s BySubject) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject = ?", s.Subject)
}

type ByPeriod struct {
	Period string
}

func (s ByPeriod) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("period = ?", s.Period)
}

type ByCalcStatus struct {
	Status entity.CalcStatus
}

func (s ByCalcStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}

// WithoutReport keeps calc results that have no report artifact yet.
type WithoutReport struct{}

func (s WithoutReport) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("NOT EXISTS (SELECT 1 FROM report_artifacts ra WHERE ra.calc_result_id = calc_results.id)")
}

type ByCalcResultID struct {
	CalcResultID uuid.UUID
}

func (s ByCalcResultID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("calc_result_id = ?", s.CalcResultID)
}
