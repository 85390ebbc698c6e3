package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"corp-tax-agent-be/pkg/apperror"
	"corp-tax-agent-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	response string
	err      error
	opts     llm.Options
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	for _, o := range options {
		o(&s.opts)
	}
	return s.response, s.err
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		tag     string
		subject string
		period  string
	}{
		{"calculate ticker", "Calculate corporate tax for ACME 2023", TagCalculate, "ACME", "2023"},
		{"corp code token", "tax for corp_code=00126380 in 2022", TagCalculate, "00126380", "2022"},
		{"bare dart code", "00164779 2023Q2 법인세 계산", TagCalculate, "00164779", "2023Q2"},
		{"compare", "compare ACME to last time", TagCompare, "ACME", ""},
		{"report", "give me the PDF report", TagReport, "", ""},
		{"report with calculation is a calculation", "calculate ACME 2023 tax report", TagCalculate, "ACME", "2023"},
		{"tax report is a report", "download the tax report", TagReport, "", ""},
		{"korean tax report", "법인세 보고서 다운로드", TagReport, "", ""},
		{"tax alone is a calculation", "what is the tax for ACME", TagCalculate, "ACME", ""},
		{"subject only", "ACME 2021", TagCalculate, "ACME", "2021"},
		{"quarter with dash", "estimate tax ACME 2024-q3", TagCalculate, "ACME", "2024Q3"},
		{"nothing", "hello there", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ParseKeywords(tt.text)
			assert.Equal(t, tt.tag, in.Tag)
			assert.Equal(t, tt.subject, in.Subject)
			assert.Equal(t, tt.period, in.Period)
			assert.Equal(t, SourceKeyword, in.Source)
		})
	}
}

func TestExtract_LLM(t *testing.T) {
	stub := &stubLLM{response: "Sure! {\"tag\": \"Calculate\", \"subject\": \"ACME\", \"period\": \"2023 q1\", \"confidence\": 0.9}"}
	e := NewExtractor(stub, time.Second, nil)

	in, err := e.Extract(context.Background(), "how much tax does acme owe for Q1 2023?", nil)
	require.NoError(t, err)

	assert.Equal(t, TagCalculate, in.Tag)
	assert.Equal(t, "ACME", in.Subject)
	assert.Equal(t, "2023Q1", in.Period)
	assert.Equal(t, SourceLLM, in.Source)
	assert.Equal(t, 0.0, stub.opts.Temperature)
	assert.True(t, stub.opts.JSONMode)
}

func TestExtract_FallsBackToKeywords(t *testing.T) {
	tests := []struct {
		name string
		llm  llm.LLMProvider
	}{
		{"no provider", nil},
		{"provider error", &stubLLM{err: errors.New("connection refused")}},
		{"not json", &stubLLM{response: "I think the user wants tax"}},
		{"unknown tag", &stubLLM{response: `{"tag": "dance"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.llm, time.Second, nil)
			in, err := e.Extract(context.Background(), "Calculate corporate tax for ACME 2023", nil)
			require.NoError(t, err)
			assert.Equal(t, TagCalculate, in.Tag)
			assert.Equal(t, "ACME", in.Subject)
			assert.Equal(t, SourceKeyword, in.Source)
		})
	}
}

func TestExtract_NotActionable(t *testing.T) {
	tests := []struct {
		name string
		llm  llm.LLMProvider
		text string
	}{
		{"empty", nil, "   "},
		{"small talk", nil, "hello there"},
		{"calculation without company", nil, "calculate my tax please"},
		{"llm says none", &stubLLM{response: `{"tag": "none"}`}, "what's the weather"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.llm, time.Second, nil)
			_, err := e.Extract(context.Background(), tt.text, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.IntentParse))
		})
	}
}

func TestExtract_HistoryAndDefaults(t *testing.T) {
	e := NewExtractor(nil, time.Second, nil).WithClock(fixedClock)
	history := []llm.Message{
		{Role: "user", Content: "Calculate tax for ACME 2022"},
		{Role: "assistant", Content: "BETA would owe less"},
	}

	in, err := e.Extract(context.Background(), "and how much tax now?", history)
	require.NoError(t, err)
	assert.Equal(t, "ACME", in.Subject)
	assert.Equal(t, "2022", in.Period)

	in, err = e.Extract(context.Background(), "calculate tax for ACME snapshot=flat-10", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024", in.Period)
	assert.Equal(t, "flat-10", in.SnapshotVersion)
}
