package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"habeat-engine/internal/shared"

	"go.uber.org/zap"
)

// LocalBackend talks to a locally hosted, Ollama-compatible model server. It
// is the fallback when the cloud backend is unconfigured or exhausted.
type LocalBackend struct {
	baseURL    string
	model      string
	policy     RetryPolicy
	httpClient *http.Client
	logger     *zap.Logger
	recorder   AttemptRecorder
}

// NewLocalBackend creates a client for an Ollama-compatible server.
func NewLocalBackend(baseURL, model string, policy RetryPolicy, logger *zap.Logger, recorder AttemptRecorder) *LocalBackend {
	if model == "" {
		model = "llama3"
	}
	return &LocalBackend{
		baseURL:  baseURL,
		model:    model,
		policy:   policy,
		logger:   logger,
		recorder: recorder,
		httpClient: &http.Client{
			// per-call deadlines come from the retry policy's context
			Timeout: 0,
		},
	}
}

func (l *LocalBackend) Name() string { return "local" }

// GenerateContent runs the local model with the backend's retry loop.
func (l *LocalBackend) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := l.policy.Do(ctx, l.logger.With(zap.String("model", l.model)), func(ctx context.Context) (ContentResponse, error) {
		return l.generate(ctx, prompt)
	}, l.recordAttempts())
	if err != nil {
		return ContentResponse{}, fmt.Errorf("local backend failed: %w", err)
	}
	return resp, nil
}

func (l *LocalBackend) generate(ctx context.Context, prompt string) (ContentResponse, error) {
	reqBody := map[string]any{
		"model":  l.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/api/generate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, fmt.Errorf("local model error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var localResp struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&localResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if localResp.Response == "" {
		return ContentResponse{}, fmt.Errorf("%w: no content generated", ErrMalformedResponse)
	}

	return ContentResponse{
		Content: localResp.Response,
		Usage: shared.TokenUsage{
			PromptTokens:     localResp.PromptEvalCount,
			CompletionTokens: localResp.EvalCount,
			TotalTokens:      localResp.PromptEvalCount + localResp.EvalCount,
			Model:            l.model,
		},
	}, nil
}

// recordAttempts returns the retry-loop observer that persists one metrics
// row per attempt.
func (l *LocalBackend) recordAttempts() AttemptObserver {
	return func(attempt int, resp ContentResponse, err error, latency time.Duration) {
		if l.recorder == nil {
			return
		}
		meta := shared.AttemptMeta{
			Backend: l.Name(),
			Model:   l.model,
			Attempt: attempt,
			Usage:   resp.Usage,
			Latency: latency,
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			meta.Err = err.Error()
		}
		l.recorder.RecordAttempt(meta)
	}
}
