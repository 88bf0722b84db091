package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy governs how a single model variant is retried. The sleep and
// timeout hooks are injectable so tests never touch a real clock.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls per model variant, first try
	// included.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: delay = BaseDelay * 2^attempt.
	BaseDelay time.Duration
	// Timeout bounds each individual call. Zero means no per-call deadline.
	Timeout time.Duration
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the production settings: three attempts per
// variant, 1.5s base delay, two-minute per-call budget for full-week
// generation.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1500 * time.Millisecond,
		Timeout:     120 * time.Second,
	}
}

// WithTimeout returns a copy of the policy with a different per-call budget.
func (p RetryPolicy) WithTimeout(d time.Duration) RetryPolicy {
	p.Timeout = d
	return p
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AttemptObserver receives the outcome of every attempt inside the retry
// loop, retried failures included. The attempt number is 1-based and the
// error is already classified.
type AttemptObserver func(attempt int, resp ContentResponse, err error, latency time.Duration)

// Do runs fn under the policy. Only transient-classified errors re-enter the
// loop; validation and fatal-backend errors abort on the spot. The returned
// error is always classified.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context) (ContentResponse, error), observers ...AttemptObserver) (ContentResponse, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.BaseDelay << (attempt - 2)
			logger.Debug("backing off before retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if err := p.sleep(ctx, delay); err != nil {
				return ContentResponse{}, err
			}
		}

		start := time.Now()
		resp, err := p.call(ctx, fn)
		if err != nil {
			err = Classify(err)
		}
		for _, observe := range observers {
			observe(attempt, resp, err, time.Since(start))
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(lastErr, ErrTransient) {
			return ContentResponse{}, lastErr
		}
		logger.Warn("model call failed, will retry if attempts remain",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", p.MaxAttempts),
			zap.Error(lastErr))
	}
	return ContentResponse{}, fmt.Errorf("all %d attempts exhausted: %w", p.MaxAttempts, lastErr)
}

type callResult struct {
	resp ContentResponse
	err  error
}

// call races fn against the per-call timeout. When the timer wins, the
// in-flight call is abandoned, not cancelled: its side effects (token usage)
// have already happened at the provider, and nothing awaits its result.
func (p RetryPolicy) call(ctx context.Context, fn func(ctx context.Context) (ContentResponse, error)) (ContentResponse, error) {
	if p.Timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	done := make(chan callResult, 1)
	go func() {
		resp, err := fn(callCtx)
		done <- callResult{resp, err}
	}()

	select {
	case r := <-done:
		cancel()
		return r.resp, r.err
	case <-callCtx.Done():
		// the goroutine drains into the buffered channel whenever it finishes
		cancel()
		return ContentResponse{}, fmt.Errorf("%w: call exceeded %s", ErrTransient, p.Timeout)
	}
}
