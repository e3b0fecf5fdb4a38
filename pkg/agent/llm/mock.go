package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMockExhausted is returned when a MockClient has no scripted response left.
var ErrMockExhausted = errors.New("mock client: no scripted response left")

// MockResponse is one scripted reply.
type MockResponse struct {
	Err      error
	Response CompletionResponse
}

// MockClient replays scripted responses in order and records every request.
// Handler, when set, answers requests after the script runs out.
type MockClient struct {
	Handler func(req CompletionRequest) (CompletionResponse, error)

	mu       sync.Mutex
	model    string
	script   []MockResponse
	requests []CompletionRequest
}

// NewMockClient creates a mock reporting model as its name.
func NewMockClient(model string) *MockClient {
	return &MockClient{model: model}
}

// Reply appends a successful response.
func (m *MockClient) Reply(resp CompletionResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, MockResponse{Response: resp})
	return m
}

// ReplyText appends a text-only response.
func (m *MockClient) ReplyText(content string) *MockClient {
	return m.Reply(CompletionResponse{Content: content, StopReason: "end_turn"})
}

// ReplyToolCall appends a response carrying a single tool call.
func (m *MockClient) ReplyToolCall(name string, params map[string]any) *MockClient {
	m.mu.Lock()
	id := fmt.Sprintf("call_%d", len(m.script)+1)
	m.mu.Unlock()
	return m.Reply(CompletionResponse{
		ToolCalls:  []ToolCall{{ID: id, Name: name, Parameters: params}},
		StopReason: "tool_use",
	})
}

// Fail appends an error response.
func (m *MockClient) Fail(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, MockResponse{Err: err})
	return m
}

// Complete returns the next scripted response.
func (m *MockClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, in)
	if len(m.script) == 0 {
		handler := m.Handler
		m.mu.Unlock()
		if handler != nil {
			return handler(in)
		}
		return CompletionResponse{}, ErrMockExhausted
	}
	next := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	return next.Response, next.Err
}

// GetModelName returns the configured model name.
func (m *MockClient) GetModelName() string {
	return m.model
}

// Requests returns a copy of every request received.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

// Calls returns how many requests were received.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Remaining returns how many scripted responses are unused.
func (m *MockClient) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}
