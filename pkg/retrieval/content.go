package retrieval

import (
	"fmt"
	"strings"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/money"
	"corp-tax-agent-be/pkg/tax/evaluator"
)

// BuildContent renders the searchable text of an accepted result.
func BuildContent(result *entity.CalcResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "corporate tax calculation\n")
	fmt.Fprintf(&sb, "subject: %s", result.Subject)
	if result.SubjectName != "" && result.SubjectName != result.Subject {
		fmt.Fprintf(&sb, " (%s)", result.SubjectName)
	}
	fmt.Fprintf(&sb, "\nperiod: %s\n", result.Period)
	fmt.Fprintf(&sb, "snapshot: %s formula %s\n", result.SnapshotVersion, result.Formula)
	fmt.Fprintf(&sb, "provenance: %s\n", result.Provenance)
	for _, li := range result.LineItems {
		fmt.Fprintf(&sb, "%s: %s\n", li.Name, money.Group(li.Amount))
	}
	fmt.Fprintf(&sb, "total: %s\n", money.Group(result.Total))
	fmt.Fprintf(&sb, "effective rate: %s%%\n", money.Percent(evaluator.EffectiveRate(result)))
	fmt.Fprintf(&sb, "confidence: %.4f\n", result.Confidence)
	if len(result.Concerns) == 0 {
		sb.WriteString("concerns: none")
	} else {
		fmt.Fprintf(&sb, "concerns: %s", strings.Join(result.Concerns, "; "))
	}
	return sb.String()
}

// NewDocument builds the document indexed for result.
func NewDocument(result *entity.CalcResult) *entity.RetrievalDocument {
	return &entity.RetrievalDocument{
		CalcResultId: result.Id,
		Subject:      result.Subject,
		Period:       result.Period,
		Content:      BuildContent(result),
	}
}
