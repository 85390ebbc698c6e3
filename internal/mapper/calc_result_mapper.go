package mapper

import (
	"encoding/json"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CalcResultMapper struct{}

func NewCalcResultMapper() *CalcResultMapper {
	return &CalcResultMapper{}
}

type lineItemJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func (m *CalcResultMapper) ToEntity(r *model.CalcResult) *entity.CalcResult {
	if r == nil {
		return nil
	}

	var raw []lineItemJSON
	if len(r.LineItems) > 0 {
		_ = json.Unmarshal(r.LineItems, &raw)
	}
	items := make([]entity.LineItem, 0, len(raw))
	for _, li := range raw {
		amount, err := decimal.NewFromString(li.Amount)
		if err != nil {
			continue
		}
		items = append(items, entity.LineItem{Name: li.Name, Amount: amount})
	}

	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		total = decimal.Zero
	}

	return &entity.CalcResult{
		Id:              r.Id,
		SessionId:       r.SessionId,
		Subject:         r.Subject,
		SubjectName:     r.SubjectName,
		Period:          r.Period,
		SnapshotVersion: r.SnapshotVersion,
		Formula:         r.Formula,
		FactsId:         r.FactsId,
		Provenance:      entity.Provenance(r.Provenance),
		LineItems:       items,
		Total:           total,
		MissingFacts:    stringsFromJSON(r.MissingFacts),
		Confidence:      r.Confidence,
		Concerns:        stringsFromJSON(r.Concerns),
		Status:          entity.CalcStatus(r.Status),
		Attempt:         r.Attempt,
		Strategy:        r.Strategy,
		CreatedAt:       r.CreatedAt,
	}
}

func (m *CalcResultMapper) ToModel(r *entity.CalcResult) *model.CalcResult {
	if r == nil {
		return nil
	}

	raw := make([]lineItemJSON, len(r.LineItems))
	for i, li := range r.LineItems {
		raw[i] = lineItemJSON{Name: li.Name, Amount: li.Amount.String()}
	}
	b, _ := json.Marshal(raw)

	return &model.CalcResult{
		Id:              r.Id,
		SessionId:       r.SessionId,
		Subject:         r.Subject,
		SubjectName:     r.SubjectName,
		Period:          r.Period,
		SnapshotVersion: r.SnapshotVersion,
		Formula:         r.Formula,
		FactsId:         r.FactsId,
		Provenance:      string(r.Provenance),
		LineItems:       datatypes.JSON(b),
		Total:           r.Total.String(),
		MissingFacts:    stringsToJSON(r.MissingFacts),
		Confidence:      r.Confidence,
		Concerns:        stringsToJSON(r.Concerns),
		Status:          string(r.Status),
		Attempt:         r.Attempt,
		Strategy:        r.Strategy,
		CreatedAt:       r.CreatedAt,
	}
}

func (m *CalcResultMapper) ToEntities(models []*model.CalcResult) []*entity.CalcResult {
	entities := make([]*entity.CalcResult, len(models))
	for i, r := range models {
		entities[i] = m.ToEntity(r)
	}
	return entities
}
