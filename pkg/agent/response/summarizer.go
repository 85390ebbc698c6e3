// Package response phrases pipeline outcomes as agent replies.
package response

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"corp-tax-agent-be/internal/constant"
	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/llm"
	"corp-tax-agent-be/pkg/money"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/evaluator"
)

// Summarizer writes replies from a fixed template and, when an LLM is
// configured, asks it to restate the template in a friendlier tone. The
// template is returned whenever the model fails or drops a figure.
type Summarizer struct {
	llmProvider llm.LLMProvider
	timeout     time.Duration
	logger      *log.Logger
}

func NewSummarizer(llmProvider llm.LLMProvider, timeout time.Duration, logger *log.Logger) *Summarizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Summarizer{llmProvider: llmProvider, timeout: timeout, logger: logger}
}

// Result replies to an accepted calculation. reportErr is the REPORT stage
// failure, if any.
func (s *Summarizer) Result(ctx context.Context, result *entity.CalcResult, reportErr error) string {
	base := ResultTemplate(result)
	if reportErr != nil {
		base += "\nThe PDF report could not be produced this time. Ask for the report again to retry."
	}
	return s.rephrase(ctx, base, money.Group(result.Total))
}

// Comparison replies to a compare request.
func (s *Summarizer) Comparison(ctx context.Context, cmp *retrieval.Comparison) string {
	base := ComparisonTemplate(cmp)
	if cmp.Empty() {
		return base
	}
	return s.rephrase(ctx, base, money.Group(cmp.Rows[0].Total))
}

func (s *Summarizer) rephrase(ctx context.Context, base, mustKeep string) string {
	if s.llmProvider == nil {
		return base
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(constant.SummaryRewritePromptV1, base)
	out, err := s.llmProvider.Generate(callCtx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		s.logger.Printf("[ERROR] Summary generation failed: %v", err)
		return base
	}
	out = strings.TrimSpace(out)
	if out == "" || !strings.Contains(out, mustKeep) {
		s.logger.Printf("[WARN] Summary dropped figures, using template")
		return base
	}
	return out
}

func ResultTemplate(r *entity.CalcResult) string {
	var sb strings.Builder
	name := r.Subject
	if r.SubjectName != "" && r.SubjectName != r.Subject {
		name = fmt.Sprintf("%s (%s)", r.SubjectName, r.Subject)
	}
	fmt.Fprintf(&sb, "Estimated corporate tax for %s, period %s: %s KRW.\n", name, r.Period, money.Group(r.Total))
	for _, li := range r.LineItems {
		fmt.Fprintf(&sb, "- %s: %s\n", li.Name, money.Group(li.Amount))
	}
	fmt.Fprintf(&sb, "Effective rate %s%%, snapshot %s, data %s, confidence %.2f.",
		money.Percent(evaluator.EffectiveRate(r)), r.SnapshotVersion, r.Provenance, r.Confidence)
	if r.Provenance == entity.ProvenanceMock {
		sb.WriteString("\nLive financial data was unavailable; figures use demo data.")
	}
	if len(r.Concerns) > 0 {
		fmt.Fprintf(&sb, "\nConcerns: %s.", strings.Join(r.Concerns, "; "))
	}
	return sb.String()
}

func ComparisonTemplate(cmp *retrieval.Comparison) string {
	if cmp.Empty() {
		return "There are no earlier calculations to compare with yet."
	}
	var sb strings.Builder
	if ref := cmp.Reference; ref != nil {
		fmt.Fprintf(&sb, "Compared with %s %s (total %s KRW):\n", ref.Subject, ref.Period, money.Group(ref.Total))
	}
	for _, row := range cmp.Rows {
		change := "n/a"
		if row.ChangePct != nil {
			change = row.ChangePct.StringFixed(2) + "%"
		}
		fmt.Fprintf(&sb, "- %s %s [%s, %s]: %s KRW, change %s\n",
			row.Subject, row.Period, row.SnapshotVersion, row.Provenance, money.Group(row.Total), change)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Failure maps an error kind to a reply that exposes no internals.
func Failure(kind apperror.Kind, ev *evaluator.Evaluation) string {
	switch kind {
	case apperror.KindIntentParse:
		return "I could not tell what to calculate. Name a company (ticker or corp_code=...) and a period, for example \"calculate corporate tax for ACME 2023\"."
	case apperror.KindDataUnavailable:
		return "Financial data for that company and period is not available right now."
	case apperror.KindSnapshotNotFound:
		return "No tax parameter snapshot covers that period."
	case apperror.KindParameterMissing:
		return "The tax parameter snapshot is incomplete, so the calculation was stopped."
	case apperror.KindTimeout:
		return "An upstream service took too long to answer. Please try again."
	case apperror.KindLowConfidence:
		msg := "The calculation did not pass the plausibility checks, so no result was accepted."
		if ev != nil && len(ev.Concerns) > 0 {
			msg += " Concerns: " + strings.Join(ev.Concerns, "; ") + "."
		}
		if ev != nil && len(ev.MissingFacts) > 0 {
			msg += " Missing data: " + strings.Join(ev.MissingFacts, ", ") + "."
		}
		return msg
	case apperror.KindRender:
		return "The report could not be produced."
	case apperror.KindNotFound:
		return "There is no accepted calculation in this session to report on yet."
	}
	return "Something went wrong while handling the request."
}
