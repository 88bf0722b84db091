package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// Error classes. Every error leaving this package wraps exactly one of these
// sentinels so callers can dispatch with errors.Is without parsing provider
// payloads.
var (
	// ErrValidation marks malformed or missing input. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks rate limiting, overload or timeout. Retried with
	// backoff, then escalated to the next model/backend.
	ErrTransient = errors.New("transient backend error")
	// ErrFatalBackend marks invalid credentials or exhausted quota. Aborts the
	// current backend immediately; the fallback chain may still advance.
	ErrFatalBackend = errors.New("fatal backend error")
	// ErrMalformedResponse marks output the sanitizer/transformer could not
	// turn into a valid plan. Counts as a failed generation attempt.
	ErrMalformedResponse = errors.New("malformed response")
)

var transientMarkers = []string{
	"429", "500", "502", "503", "504",
	"overloaded", "timeout", "timed out", "deadline exceeded",
	"rate limit", "resource exhausted", "unavailable", "try again",
}

var fatalMarkers = []string{
	"401", "403", "invalid api key", "api key not valid", "api_key",
	"permission denied", "unauthorized", "quota exceeded", "billing",
}

// Classify wraps an unclassified backend error with the matching sentinel.
// Already-classified errors pass through unchanged. Unknown errors default to
// transient: a retry against a flaky provider is cheaper than a false abort.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrFatalBackend) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		case 400, 401, 403:
			return fmt.Errorf("%w: %v", ErrFatalBackend, err)
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrFatalBackend, err)
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// IsRetryable reports whether an error should re-enter the backoff loop.
func IsRetryable(err error) bool {
	return errors.Is(Classify(err), ErrTransient)
}
