package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
)

func instantPolicy(attempts int) *Policy {
	p := NewPolicy(Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, BackoffFactor: 2}, nil)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func request() llm.CompletionRequest {
	return llm.CompletionRequest{Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")}}
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	mock := llm.NewMockClient("m").
		Fail(llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")).
		Fail(llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429")).
		ReplyText("done")

	client := llm.Chain(mock, Middleware(instantPolicy(3), nil))
	resp, err := client.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "done" || mock.Calls() != 3 {
		t.Errorf("got %q after %d calls", resp.Content, mock.Calls())
	}
}

func TestDoesNotRetryAuth(t *testing.T) {
	mock := llm.NewMockClient("m").Fail(llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")).ReplyText("never")

	_, err := llm.Chain(mock, Middleware(instantPolicy(3), nil)).Complete(context.Background(), request())
	if !llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("auth errors must not be retried, got %d calls", mock.Calls())
	}
}

func TestExhaustionBecomesServiceUnavailable(t *testing.T) {
	transient := llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")
	mock := llm.NewMockClient("m").Fail(transient).Fail(transient)

	_, err := llm.Chain(mock, Middleware(instantPolicy(2), nil)).Complete(context.Background(), request())
	if !llmerrors.IsServiceUnavailable(err) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if !errors.Is(err, transient) {
		t.Error("last cause must be wrapped")
	}
}

func TestCancelledDuringBackoff(t *testing.T) {
	mock := llm.NewMockClient("m").Fail(llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"))
	policy := NewPolicy(Config{MaxAttempts: 3, InitialDelay: time.Hour, BackoffFactor: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := llm.Chain(mock, Middleware(policy, nil)).Complete(ctx, request())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}, nil)

	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := p.CalculateDelay(i + 1); got != w {
			t.Errorf("attempt %d: delay %s, want %s", i+1, got, w)
		}
	}

	p.Config.Jitter = true
	for i := 0; i < 20; i++ {
		d := p.CalculateDelay(2)
		if d < 90*time.Millisecond || d > 110*time.Millisecond {
			t.Fatalf("jittered delay %s outside +/-10%%", d)
		}
	}
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	if p := NewPolicy(Config{}, nil); p.Config.MaxAttempts != DefaultConfig.MaxAttempts {
		t.Errorf("expected default attempts, got %d", p.Config.MaxAttempts)
	}
}
