// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"
	"fmt"

	"projectgen/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user. Tool results travel on user messages.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model. Tool calls travel on assistant messages.
	RoleAssistant CompletionRole = "assistant"
)

// Tool choice values understood by every provider. Any other non-empty value
// names the single tool the model must call.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceAny  = "any"
	ToolChoiceNone = "none"
)

// DefaultMaxTokens applies when a request leaves MaxTokens unset.
const DefaultMaxTokens = 4096

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ToolResult is the outcome of a ToolCall sent back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	// Name repeats the tool name for providers that match results by name.
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// CompletionMessage is one turn of a conversation.
type CompletionMessage struct {
	Role        CompletionRole
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	ToolChoice  string
	MaxTokens   int
	Temperature float32
}

// Usage reports provider-counted tokens. Zero values mean the provider did not report them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionResponse represents a response from a completion request.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string
	StopReason string
	Usage      Usage
}

// LLMClient is the provider-agnostic completion interface.
type LLMClient interface { //nolint:revive // name kept consistent across packages
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)
	GetModelName() string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage records a model turn including its tool calls.
func NewAssistantMessage(content string, calls []ToolCall) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResultMessage wraps tool results in a user turn.
func NewToolResultMessage(results []ToolResult) CompletionMessage {
	return CompletionMessage{Role: RoleUser, ToolResults: results}
}

// ForcedTool returns the tool name a request forces, or "" for auto/any/none.
func ForcedTool(choice string) string {
	switch choice {
	case "", ToolChoiceAuto, ToolChoiceAny, ToolChoiceNone:
		return ""
	default:
		return choice
	}
}

// Validate checks request invariants shared by every provider.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("message list cannot be empty")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %.2f", r.Temperature)
	}
	if name := ForcedTool(r.ToolChoice); name != "" {
		for i := range r.Tools {
			if r.Tools[i].Name == name {
				return nil
			}
		}
		return fmt.Errorf("tool choice %q does not match any provided tool", name)
	}
	return nil
}

// EffectiveMaxTokens returns MaxTokens or the default.
func (r *CompletionRequest) EffectiveMaxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}
