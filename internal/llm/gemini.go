package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"habeat-engine/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// modelPriority is the preference order for Gemini variants. The first entry
// that the provider actually lists wins; the rest are fallbacks.
var modelPriority = []string{
	"gemini-2.0-flash",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-pro",
}

// GeminiBackend is the primary cloud backend. It queries the provider for the
// available model variants once, sorts them by preference, and walks them in
// order, each with its own retry loop.
type GeminiBackend struct {
	client   *genai.Client
	policy   RetryPolicy
	logger   *zap.Logger
	recorder AttemptRecorder

	mu     sync.Mutex
	models []string // cached, priority-sorted; nil until first use
}

// NewGeminiBackend creates the cloud backend from an API key.
func NewGeminiBackend(ctx context.Context, apiKey string, policy RetryPolicy, logger *zap.Logger, recorder AttemptRecorder) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiBackend{
		client:   client,
		policy:   policy,
		logger:   logger,
		recorder: recorder,
	}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

// availableModels returns the cached priority-sorted variant list, querying
// the provider on first use.
func (g *GeminiBackend) availableModels(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.models != nil {
		return g.models, nil
	}

	listed := make(map[string]bool)
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, Classify(fmt.Errorf("failed to list models: %w", err))
		}
		listed[strings.TrimPrefix(m.Name, "models/")] = true
	}

	var ordered []string
	for _, name := range modelPriority {
		if listed[name] {
			ordered = append(ordered, name)
		}
	}
	if len(ordered) == 0 {
		// provider listed nothing recognizable; fall back to the static
		// preference order and let the calls themselves fail or succeed
		ordered = modelPriority
	}
	g.models = ordered
	g.logger.Info("resolved Gemini model variants", zap.Strings("models", ordered))
	return ordered, nil
}

// RefreshModels discards the cached variant list so the next call re-queries
// the provider.
func (g *GeminiBackend) RefreshModels() {
	g.mu.Lock()
	g.models = nil
	g.mu.Unlock()
}

// GenerateContent walks the variant list in priority order. Each variant gets
// a full retry loop; a fatal-backend error aborts the whole backend since the
// credential problem applies to every variant.
func (g *GeminiBackend) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	models, err := g.availableModels(ctx)
	if err != nil {
		return ContentResponse{}, err
	}

	var lastErr error
	for _, model := range models {
		resp, err := g.policy.Do(ctx, g.logger.With(zap.String("model", model)), func(ctx context.Context) (ContentResponse, error) {
			return g.generateWith(ctx, model, prompt)
		}, g.recordAttempts(model))
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrFatalBackend) || errors.Is(err, context.Canceled) {
			return ContentResponse{}, err
		}
		g.logger.Warn("model variant exhausted, advancing",
			zap.String("model", model), zap.Error(err))
		lastErr = err
	}
	return ContentResponse{}, fmt.Errorf("all Gemini variants exhausted: %w", lastErr)
}

func (g *GeminiBackend) generateWith(ctx context.Context, model, prompt string) (ContentResponse, error) {
	resp, err := g.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("%w: no content generated", ErrMalformedResponse)
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return ContentResponse{}, fmt.Errorf("%w: generated content is not text", ErrMalformedResponse)
	}

	usage := shared.TokenUsage{Model: model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// recordAttempts returns the retry-loop observer that persists one metrics
// row per attempt against a model variant.
func (g *GeminiBackend) recordAttempts(model string) AttemptObserver {
	return func(attempt int, resp ContentResponse, err error, latency time.Duration) {
		if g.recorder == nil {
			return
		}
		meta := shared.AttemptMeta{
			Backend: g.Name(),
			Model:   model,
			Attempt: attempt,
			Usage:   resp.Usage,
			Latency: latency,
		}
		if err != nil {
			meta.Err = err.Error()
		}
		g.recorder.RecordAttempt(meta)
	}
}

// Close closes the underlying Gemini client.
func (g *GeminiBackend) Close() error {
	return g.client.Close()
}
