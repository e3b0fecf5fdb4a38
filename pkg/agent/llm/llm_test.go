package llm

import (
	"context"
	"errors"
	"testing"

	"projectgen/pkg/tools"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(next, func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				order = append(order, name)
				return next.Complete(ctx, req)
			})
		}
	}

	base := NewMockClient("base-model").ReplyText("ok")
	client := Chain(base, mark("outer"), mark("inner"))

	resp, err := client.Complete(context.Background(), CompletionRequest{Messages: []CompletionMessage{NewUserMessage("hi")}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected middleware order %v", order)
	}
	if client.GetModelName() != "base-model" {
		t.Errorf("model name not delegated: %q", client.GetModelName())
	}
}

func TestRequestValidate(t *testing.T) {
	def := tools.ToolDefinition{Name: "submit_plan"}
	tests := []struct {
		name    string
		req     CompletionRequest
		wantErr bool
	}{
		{"empty", CompletionRequest{}, true},
		{"ok", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}}, false},
		{"bad temperature", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, Temperature: 3}, true},
		{"forced tool present", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, Tools: []tools.ToolDefinition{def}, ToolChoice: "submit_plan"}, false},
		{"forced tool missing", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, ToolChoice: "submit_plan"}, true},
		{"any without tools", CompletionRequest{Messages: []CompletionMessage{NewUserMessage("x")}, ToolChoice: ToolChoiceAny}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestForcedTool(t *testing.T) {
	for choice, want := range map[string]string{"": "", "auto": "", "any": "", "none": "", "submit_plan": "submit_plan"} {
		if got := ForcedTool(choice); got != want {
			t.Errorf("ForcedTool(%q) = %q, want %q", choice, got, want)
		}
	}
}

func TestMockClientScript(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockClient("m").ReplyToolCall("write_file", map[string]any{"path": "a"}).Fail(boom)
	ctx := context.Background()

	resp, err := m.Complete(ctx, CompletionRequest{})
	if err != nil || len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "write_file" {
		t.Fatalf("unexpected first response %+v, %v", resp, err)
	}
	if _, err := m.Complete(ctx, CompletionRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if _, err := m.Complete(ctx, CompletionRequest{}); !errors.Is(err, ErrMockExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("expected 3 recorded calls, got %d", m.Calls())
	}

	m.Handler = func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{Content: "fallback"}, nil
	}
	if resp, _ := m.Complete(ctx, CompletionRequest{}); resp.Content != "fallback" {
		t.Errorf("handler not used: %+v", resp)
	}
}

func TestMockClientHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockClient("m").ReplyText("x").Complete(ctx, CompletionRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
