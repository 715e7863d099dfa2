package domain

// UsageCategory classifies a token-usage entry.
type UsageCategory string

const (
	UsagePrompt     UsageCategory = "prompt"
	UsageCompletion UsageCategory = "completion"
	UsageOverhead   UsageCategory = "overhead"
)

// UsageEntry is one recorded token cost within a pipeline run.
type UsageEntry struct {
	Stage    string        `json:"stage"`
	Category UsageCategory `json:"category"`
	Tokens   int           `json:"tokens"`
}

// UsageTally accumulates token costs across every model invocation of a
// single pipeline run. Owned by exactly one run; not safe for concurrent use.
type UsageTally struct {
	Entries []UsageEntry `json:"entries"`
}

// Record appends one token cost. Zero and negative amounts are ignored.
func (t *UsageTally) Record(tokens int, category UsageCategory, stage string) {
	if tokens <= 0 {
		return
	}
	t.Entries = append(t.Entries, UsageEntry{Stage: stage, Category: category, Tokens: tokens})
}

// RecordUsage appends the prompt and completion costs of one model call.
func (t *UsageTally) RecordUsage(usage TokenUsage, stage string) {
	t.Record(usage.PromptTokens, UsagePrompt, stage)
	t.Record(usage.CompletionTokens, UsageCompletion, stage)
}

func (t *UsageTally) total(category UsageCategory) int {
	sum := 0
	for _, e := range t.Entries {
		if e.Category == category {
			sum += e.Tokens
		}
	}
	return sum
}

func (t *UsageTally) PromptTokens() int     { return t.total(UsagePrompt) }
func (t *UsageTally) CompletionTokens() int { return t.total(UsageCompletion) }
func (t *UsageTally) OverheadTokens() int   { return t.total(UsageOverhead) }
