package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a single model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AttemptMeta holds operational metadata for one model attempt.
type AttemptMeta struct {
	Backend string
	Model   string
	Attempt int
	Usage   TokenUsage
	Latency time.Duration
	Err     string
}
