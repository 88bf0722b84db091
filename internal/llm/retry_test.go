package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRetryPolicyDo(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ExactAttemptCountOnOverload", func(t *testing.T) {
		calls := 0
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep}
		_, err := policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			calls++
			return ContentResponse{}, fmt.Errorf("503 service overloaded")
		})
		if calls != 3 {
			t.Errorf("Expected exactly 3 attempts, got %d", calls)
		}
		if !errors.Is(err, ErrTransient) {
			t.Errorf("Expected transient classification, got %v", err)
		}
	})

	t.Run("SuccessStopsRetrying", func(t *testing.T) {
		calls := 0
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep}
		resp, err := policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			calls++
			if calls < 2 {
				return ContentResponse{}, fmt.Errorf("timeout talking to upstream")
			}
			return ContentResponse{Content: "ok"}, nil
		})
		if err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 attempts, got %d", calls)
		}
		if resp.Content != "ok" {
			t.Errorf("Unexpected content %q", resp.Content)
		}
	})

	t.Run("FatalAbortsImmediately", func(t *testing.T) {
		calls := 0
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep}
		_, err := policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			calls++
			return ContentResponse{}, fmt.Errorf("401 invalid API key")
		})
		if calls != 1 {
			t.Errorf("Expected 1 attempt for fatal error, got %d", calls)
		}
		if !errors.Is(err, ErrFatalBackend) {
			t.Errorf("Expected fatal classification, got %v", err)
		}
	})

	t.Run("ExponentialBackoffDelays", func(t *testing.T) {
		var delays []time.Duration
		policy := RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Sleep: func(ctx context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			},
		}
		_, _ = policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			return ContentResponse{}, fmt.Errorf("429 rate limited")
		})
		if len(delays) != 2 {
			t.Fatalf("Expected 2 sleeps, got %d", len(delays))
		}
		if delays[0] != time.Second || delays[1] != 2*time.Second {
			t.Errorf("Expected 1s then 2s, got %v", delays)
		}
	})

	t.Run("TimeoutRaceClassifiedTransient", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, Timeout: 10 * time.Millisecond, Sleep: noSleep}
		_, err := policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			<-ctx.Done()
			return ContentResponse{}, ctx.Err()
		})
		if !errors.Is(err, ErrTransient) {
			t.Errorf("Expected transient timeout error, got %v", err)
		}
	})

	t.Run("ObserverSeesEveryAttempt", func(t *testing.T) {
		type observation struct {
			attempt int
			err     error
		}
		var seen []observation
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep}
		calls := 0
		_, err := policy.Do(context.Background(), logger, func(ctx context.Context) (ContentResponse, error) {
			calls++
			if calls < 3 {
				return ContentResponse{}, fmt.Errorf("503 overloaded")
			}
			return ContentResponse{Content: "ok"}, nil
		}, func(attempt int, resp ContentResponse, err error, latency time.Duration) {
			seen = append(seen, observation{attempt, err})
		})
		if err != nil {
			t.Fatalf("Expected eventual success, got %v", err)
		}
		if len(seen) != 3 {
			t.Fatalf("Expected 3 observations, got %d", len(seen))
		}
		for i, o := range seen {
			if o.attempt != i+1 {
				t.Errorf("Observation %d has attempt %d", i, o.attempt)
			}
		}
		if !errors.Is(seen[0].err, ErrTransient) || !errors.Is(seen[1].err, ErrTransient) {
			t.Error("Expected failed attempts observed with classified errors")
		}
		if seen[2].err != nil {
			t.Errorf("Expected final observation without error, got %v", seen[2].err)
		}
	})

	t.Run("CancelledContextStopsLoop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
		_, err := policy.Do(ctx, logger, func(ctx context.Context) (ContentResponse, error) {
			calls++
			return ContentResponse{}, fmt.Errorf("503 overloaded")
		})
		if err == nil {
			t.Fatal("Expected error from cancelled context")
		}
		if calls != 1 {
			t.Errorf("Expected loop to stop after first attempt, got %d calls", calls)
		}
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"Overloaded", fmt.Errorf("model is overloaded"), ErrTransient},
		{"RateLimit", fmt.Errorf("got HTTP 429 from provider"), ErrTransient},
		{"ServerError", fmt.Errorf("502 bad gateway"), ErrTransient},
		{"DeadlineExceeded", context.DeadlineExceeded, ErrTransient},
		{"InvalidKey", fmt.Errorf("API key not valid"), ErrFatalBackend},
		{"QuotaExceeded", fmt.Errorf("quota exceeded for project"), ErrFatalBackend},
		{"Unauthorized", fmt.Errorf("401 unauthorized"), ErrFatalBackend},
		{"UnknownDefaultsTransient", fmt.Errorf("mystery failure"), ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); !errors.Is(got, tc.want) {
				t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	t.Run("AlreadyClassifiedPassesThrough", func(t *testing.T) {
		err := fmt.Errorf("%w: bad plan shape", ErrMalformedResponse)
		if got := Classify(err); got != err {
			t.Errorf("Expected classified error unchanged, got %v", got)
		}
	})

	t.Run("NilStaysNil", func(t *testing.T) {
		if Classify(nil) != nil {
			t.Error("Expected nil for nil input")
		}
	})
}
