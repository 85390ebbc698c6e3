package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"corp-tax-agent-be/internal/constant"
	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/llm"
)

// Extractor resolves intents with the LLM and falls back to keyword parsing
// whenever the model is absent, fails, or answers with something unusable.
type Extractor struct {
	llmProvider llm.LLMProvider
	timeout     time.Duration
	logger      *log.Logger
	now         func() time.Time
}

// NewExtractor accepts a nil provider; every turn then uses keywords.
func NewExtractor(llmProvider llm.LLMProvider, timeout time.Duration, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		llmProvider: llmProvider,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
	}
}

func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract returns an actionable intent or an IntentParse error.
// Subject and period missing from text are taken from the most recent user
// message in history that names them. A calculation without a period uses
// the last full calendar year.
func (e *Extractor) Extract(ctx context.Context, text string, history []llm.Message) (*Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.New(apperror.KindIntentParse, "intent.Extract", "empty message")
	}

	in := e.resolve(ctx, text, history)

	keywords := ParseKeywords(text)
	if in.Subject == "" {
		in.Subject = keywords.Subject
	}
	if in.Period == "" {
		in.Period = keywords.Period
	}
	if in.SnapshotVersion == "" {
		in.SnapshotVersion = keywords.SnapshotVersion
	}
	for i := len(history) - 1; i >= 0 && (in.Subject == "" || in.Period == ""); i-- {
		if history[i].Role != "user" {
			continue
		}
		if in.Subject == "" {
			in.Subject = ExtractSubject(history[i].Content)
		}
		if in.Period == "" && in.Subject != "" {
			in.Period = ExtractPeriod(history[i].Content)
		}
	}
	if in.Tag == TagCalculate && in.Period == "" {
		in.Period = fmt.Sprintf("%d", e.now().Year()-1)
	}

	if !in.Actionable() {
		msg := "no actionable request"
		if in.Tag == TagCalculate {
			msg = "no company given for the calculation"
		}
		return nil, apperror.New(apperror.KindIntentParse, "intent.Extract", msg)
	}

	e.logger.Printf("[INTENT] Resolved: %s (subject=%q period=%q snapshot=%q source=%s confidence=%.2f)",
		in.Tag, in.Subject, in.Period, in.SnapshotVersion, in.Source, in.Confidence)
	return in, nil
}

func (e *Extractor) resolve(ctx context.Context, text string, history []llm.Message) *Intent {
	if e.llmProvider == nil {
		return ParseKeywords(text)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	response, err := e.llmProvider.Generate(callCtx, buildPrompt(text, history), llm.WithTemperature(0.0), llm.WithJSON())
	if err != nil {
		e.logger.Printf("[ERROR] Intent resolution failed: %v", err)
		return ParseKeywords(text)
	}

	in, err := parseIntent(response)
	if err != nil {
		e.logger.Printf("[WARN] Intent parsing failed, using fallback: %v", err)
		return ParseKeywords(text)
	}
	return in
}

func buildPrompt(text string, history []llm.Message) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You classify requests sent to a corporate income tax assistant.\n")
	prompt.WriteString("You do NOT answer them and you do NOT compute anything.\n")
	prompt.WriteString("</system>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<history>\n")
		start := 0
		if len(history) > constant.IntentHistoryWindow {
			start = len(history) - constant.IntentHistoryWindow
		}
		for _, m := range history[start:] {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		prompt.WriteString("</history>\n\n")
	}

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(text)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("calculate: compute corporate tax for a company and period\n")
	prompt.WriteString("compare: compare with earlier calculations ('compare to last time', 'how did it change')\n")
	prompt.WriteString("report: produce the PDF report of the latest accepted calculation\n")
	prompt.WriteString("none: anything else\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<fields>\n")
	prompt.WriteString("subject: DART corp code (8 digits) or ticker exactly as written, empty if absent\n")
	prompt.WriteString("period: YYYY, YYYYQn or YYYY-MM, empty if absent\n")
	prompt.WriteString("snapshot_version: only if the user names one, otherwise empty\n")
	prompt.WriteString("</fields>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\"tag\": \"calculate|compare|report|none\", \"subject\": \"\", \"period\": \"\", \"snapshot_version\": \"\", \"confidence\": 0.9, \"reasoning\": \"\"}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseIntent(response string) (*Intent, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var in Intent
	if err := json.Unmarshal([]byte(jsonContent), &in); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	in.Tag = strings.ToLower(strings.TrimSpace(in.Tag))
	switch in.Tag {
	case TagCalculate, TagCompare, TagReport:
	case "", "none":
		in.Tag = ""
	default:
		return nil, fmt.Errorf("unknown intent tag %q", in.Tag)
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Period = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.Period), " ", ""))
	in.SnapshotVersion = strings.TrimSpace(in.SnapshotVersion)
	in.Source = SourceLLM
	return &in, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
