// Package intent turns a user utterance into a routable request.
package intent

// Tags name the routes the orchestrator knows about.
const (
	TagCalculate = "calculate"
	TagCompare   = "compare"
	TagReport    = "report"
)

const (
	SourceLLM     = "llm"
	SourceKeyword = "keyword"
)

// Intent is the resolved request of one turn.
type Intent struct {
	Tag             string  `json:"tag"`
	Subject         string  `json:"subject"`
	Period          string  `json:"period"`
	SnapshotVersion string  `json:"snapshot_version"`
	Confidence      float32 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	Source          string  `json:"-"`
}

func (i *Intent) Actionable() bool {
	if i == nil {
		return false
	}
	switch i.Tag {
	case TagCalculate:
		return i.Subject != ""
	case TagCompare, TagReport:
		return true
	}
	return false
}
