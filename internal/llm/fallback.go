package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Validator checks a backend response before the chain accepts it. A non-nil
// error counts as a failed generation for that backend and advances the chain.
type Validator func(ContentResponse) error

// FallbackChain tries an ordered list of backends until one produces a
// response the validator accepts. Fatal errors on one backend do not stop the
// chain: a bad cloud credential still allows the local fallback to serve.
type FallbackChain struct {
	backends []Backend
	validate Validator
	logger   *zap.Logger
}

// NewFallbackChain builds a chain over the given backends. validate may be
// nil to accept any successful response.
func NewFallbackChain(logger *zap.Logger, validate Validator, backends ...Backend) *FallbackChain {
	return &FallbackChain{
		backends: backends,
		validate: validate,
		logger:   logger,
	}
}

// GenerateContent walks the chain. The returned error is the classified error
// of the last backend once every backend is exhausted.
func (f *FallbackChain) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if len(f.backends) == 0 {
		return ContentResponse{}, fmt.Errorf("%w: no generation backends configured", ErrValidation)
	}

	var lastErr error
	for _, b := range f.backends {
		resp, err := b.GenerateContent(ctx, prompt)
		if err == nil && f.validate != nil {
			if verr := f.validate(resp); verr != nil {
				err = fmt.Errorf("%w: %v", ErrMalformedResponse, verr)
				f.logger.Warn("backend response rejected by validator",
					zap.String("backend", b.Name()),
					zap.String("rawResponse", truncate(resp.Content, 300)),
					zap.Error(verr))
			}
		}
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) {
			return ContentResponse{}, err
		}
		f.logger.Warn("backend exhausted, falling back",
			zap.String("backend", b.Name()),
			zap.Error(err))
		lastErr = err
	}
	return ContentResponse{}, fmt.Errorf("all generation backends exhausted: %w", lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
