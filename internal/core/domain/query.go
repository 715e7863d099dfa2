package domain

import "time"

// Query is the transient value object threaded through a pipeline run.
// Each field is populated by exactly one stage and never overwritten.
type Query struct {
	RawText          string
	DetectedLanguage string
	TranslatedText   string
	RewrittenText    string
}

// Completion is a single model invocation result with its billed token counts.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage is the prompt/completion split reported by the model provider.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Answer is the final pipeline output. Its Language always equals the
// query's detected language, never the internal working language.
type Answer struct {
	Text        string     `json:"text"`
	Language    string     `json:"language"`
	OutOfDomain bool       `json:"out_of_domain"`
	Tally       UsageTally `json:"usage"`

	// RetrievedCount is how many context chunks backed the answer. Zero for
	// out-of-domain runs.
	RetrievedCount int `json:"retrieved_count"`

	// Trace lists the states the run passed through, in order.
	Trace []State `json:"-"`
}

// DialogRecord is what the persistence collaborator stores per answered query.
type DialogRecord struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"user_id"`
	Query            string    `json:"query"`
	Answer           string    `json:"answer"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	OverheadTokens   int       `json:"overhead_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// Feedback is a user's thumbs-up/down on a stored dialog.
type Feedback struct {
	DialogID   string    `json:"dialog_id"`
	IsPositive bool      `json:"is_positive"`
	CreatedAt  time.Time `json:"created_at"`
}

// State identifies a position in the query pipeline state machine.
type State string

const (
	StateReceived            State = "received"
	StateLanguageDetected    State = "language_detected"
	StateDomainChecked       State = "domain_checked"
	StateQueryRewritten      State = "query_rewritten"
	StateRetrieved           State = "retrieved"
	StateFiltered            State = "filtered"
	StateAnswered            State = "answered"
	StateOutOfDomainAnswered State = "out_of_domain_answered"
	StateFinalized           State = "finalized"
)
