package llm

import (
	"context"

	"habeat-engine/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Backend is a named text-generation provider that can be chained for
// fallback.
type Backend interface {
	TextGenerator
	Name() string
}

// AttemptRecorder receives metadata for every model attempt, successful or
// not.
type AttemptRecorder interface {
	RecordAttempt(meta shared.AttemptMeta)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
