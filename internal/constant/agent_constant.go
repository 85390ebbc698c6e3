package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// IntentHistoryWindow is how many recent messages the intent prompt sees.
	IntentHistoryWindow = 6

	// SummaryRewritePromptV1 takes the template reply. The caller rejects any
	// rewrite that loses the headline figure.
	SummaryRewritePromptV1 = `<task>
Rewrite the following tax assistant reply for the user. Keep every number exactly as written. Do not add figures, advice or legal claims.
</task>

<reply>
%s
</reply>`
)
