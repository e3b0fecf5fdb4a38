package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
)

func slowClient() *llm.MockClient {
	m := llm.NewMockClient("slow")
	m.Handler = func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "late"}, nil
	}
	return m
}

type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	<-ctx.Done()
	return llm.CompletionResponse{}, ctx.Err()
}

func (blockingClient) GetModelName() string { return "blocking" }

func TestExpiredRequestIsTransient(t *testing.T) {
	client := llm.Chain(blockingClient{}, Middleware(10*time.Millisecond))
	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if !llmerrors.Is(err, llmerrors.ErrorTypeTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("deadline cause should be preserved")
	}
}

func TestCallerCancellationPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := llm.Chain(blockingClient{}, Middleware(time.Minute)).Complete(ctx, llm.CompletionRequest{})
	if !errors.Is(err, context.Canceled) || llmerrors.Is(err, llmerrors.ErrorTypeTransient) {
		t.Errorf("caller cancellation must not be reclassified, got %v", err)
	}
}

func TestFastRequestUnaffected(t *testing.T) {
	resp, err := llm.Chain(slowClient(), Middleware(time.Minute)).Complete(context.Background(), llm.CompletionRequest{})
	if err != nil || resp.Content != "late" {
		t.Errorf("unexpected result %+v, %v", resp, err)
	}
}

func TestZeroDurationDisables(t *testing.T) {
	base := slowClient()
	if got := Middleware(0)(base); got != llm.LLMClient(base) {
		t.Error("zero duration should return the client unchanged")
	}
}
