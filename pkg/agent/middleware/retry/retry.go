// Package retry provides retry middleware with exponential backoff for LLM clients.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
	"projectgen/pkg/logx"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts   int           `json:"max_attempts"` // including the first call
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultConfig is used when the caller supplies a zero Config.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier decides whether an error should be retried.
type Classifier func(error) bool

// ShouldRetry retries classified retryable errors and never retries cancellation.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return false
}

// Policy combines a Config with a Classifier.
//
//nolint:govet // Simple struct, logical grouping preferred
type Policy struct {
	Config     Config
	Classifier Classifier
	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy creates a policy; a nil classifier uses ShouldRetry.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if config.MaxAttempts <= 0 {
		config = DefaultConfig
	}
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{Config: config, Classifier: classifier, sleep: sleepCtx}
}

// CalculateDelay returns the wait before attempt (1-based). Attempt 1 never waits.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if p.Config.MaxDelay > 0 && delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}
	if p.Config.Jitter && delay > 0 {
		// +/-10%
		delay += time.Duration((rand.Float64()*0.2 - 0.1) * float64(delay))
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Middleware retries failed completions according to policy. Exhausting
// retries on a retryable error yields ErrorTypeServiceUnavailable.
func Middleware(policy *Policy, logger *logx.Logger) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(next, func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			var lastErr error
			for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
				if attempt > 1 {
					delay := policy.CalculateDelay(attempt)
					if logger != nil {
						logger.Warn("LLM call to %s failed (attempt %d/%d): %v; retrying in %s",
							next.GetModelName(), attempt-1, policy.Config.MaxAttempts, lastErr, delay.Round(time.Millisecond))
					}
					if err := policy.sleep(ctx, delay); err != nil {
						return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", err)
					}
				}

				resp, err := next.Complete(ctx, req)
				if err == nil {
					return resp, nil
				}
				lastErr = err
				if !policy.Classifier(err) {
					return llm.CompletionResponse{}, err
				}
			}
			return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, policy.Config.MaxAttempts)
		})
	}
}
