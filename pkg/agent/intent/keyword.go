package intent

import (
	"regexp"
	"strings"
)

var (
	compareKeywords   = []string{"compare", "comparison", " vs", "versus", "last time", "previous", "history", "비교", "지난번", "이전"}
	reportKeywords    = []string{"report", "pdf", "download", "보고서", "리포트"}
	calculateKeywords = []string{"calculate", "compute", "estimate", "how much", "계산"}
	taxKeywords       = []string{"tax", "법인세", "세금"}

	corpCodePattern = regexp.MustCompile(`(?i)\bcorp_code\s*[=:]\s*([0-9A-Za-z]+)`)
	snapshotPattern = regexp.MustCompile(`(?i)\bsnapshot\s*[=:]\s*([0-9A-Za-z._-]+)`)
	dartCodePattern = regexp.MustCompile(`\b(\d{8})\b`)
	tickerPattern   = regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,9})\b`)
	periodPattern   = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})(?:\s*-?\s*(Q[1-4]))?\b`)
)

// words in upper case that are never tickers
var notTickers = map[string]struct{}{
	"PDF": {}, "KRW": {}, "USD": {}, "VS": {}, "TAX": {}, "CIT": {}, "OK": {}, "AND": {}, "THE": {},
	"FOR": {}, "Q1": {}, "Q2": {}, "Q3": {}, "Q4": {}, "FY": {}, "DART": {}, "API": {},
}

// ParseKeywords classifies text without a model. The tag is decided by
// keyword: compare wins over report, and report only applies when the user
// does not also ask for a calculation. Mentioning tax alone ("the tax
// report") is not a calculation request. Text that names a subject or tax
// but no other keyword is treated as a calculation request.
func ParseKeywords(text string) *Intent {
	lower := " " + strings.ToLower(text)
	in := &Intent{
		Subject:         ExtractSubject(text),
		Period:          ExtractPeriod(text),
		SnapshotVersion: extractSnapshot(text),
		Confidence:      0.5,
		Source:          SourceKeyword,
	}

	switch {
	case containsAny(lower, compareKeywords):
		in.Tag = TagCompare
	case containsAny(lower, reportKeywords) && !containsAny(lower, calculateKeywords):
		in.Tag = TagReport
	case containsAny(lower, calculateKeywords), containsAny(lower, taxKeywords), in.Subject != "":
		in.Tag = TagCalculate
	}
	if in.Tag != "" {
		in.Reasoning = "keyword match"
	}
	return in
}

// ExtractSubject finds a corp_code= token, a DART corp code or an uppercase
// ticker, in that order.
func ExtractSubject(text string) string {
	if m := corpCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := dartCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, m := range tickerPattern.FindAllStringSubmatch(text, -1) {
		if _, skip := notTickers[m[1]]; skip {
			continue
		}
		return m[1]
	}
	return ""
}

// ExtractPeriod returns the first year mentioned, with its quarter when one
// follows directly ("2023", "2023Q2").
func ExtractPeriod(text string) string {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[2] != "" {
		return m[1] + strings.ToUpper(m[2])
	}
	return m[1]
}

func extractSnapshot(text string) string {
	if m := snapshotPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
