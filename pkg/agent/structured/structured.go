// Package structured invokes an LLM for a typed result. The model is forced to
// call a single submit_<shape> tool whose input schema is the shape's schema;
// a JSON object in the text reply is accepted as a fallback for providers that
// answer in prose.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/tools"
)

// ErrEmptyResult means the model returned neither a tool call nor parsable content.
var ErrEmptyResult = errors.New("structured invocation returned no result")

// Shape is a structured output type.
type Shape interface {
	// ShapeName is a short snake_case name, used in the submit tool name.
	ShapeName() string
	Schema() tools.InputSchema
	Validate() error
}

// normalizer is implemented by shapes that fill defaults after decoding.
type normalizer interface {
	Normalize()
}

// ParseError reports a result that could not be decoded or failed validation.
type ParseError struct {
	Shape string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s result: %v", e.Shape, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Prompt is the two-message input of a structured call.
type Prompt struct {
	System string
	User   string
	// MaxTokens of 0 defers to the client's model defaults.
	MaxTokens int
}

// ToolName returns the submit tool name for a shape.
func ToolName(s Shape) string {
	return "submit_" + s.ShapeName()
}

// Definition returns the submit tool definition for a shape.
func Definition(s Shape) tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        ToolName(s),
		Description: fmt.Sprintf("Submit the %s. Call this exactly once with the complete result.", strings.ReplaceAll(s.ShapeName(), "_", " ")),
		InputSchema: s.Schema(),
	}
}

// Invoke asks client for a T and decodes the answer into out. Decoding and
// validation failures return *ParseError; an empty answer returns ErrEmptyResult.
func Invoke[T Shape](ctx context.Context, client llm.LLMClient, prompt Prompt, out *T) error {
	var zero T
	def := Definition(zero)

	messages := make([]llm.CompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, llm.NewSystemMessage(prompt.System))
	}
	messages = append(messages, llm.NewUserMessage(prompt.User))

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:   messages,
		Tools:      []tools.ToolDefinition{def},
		ToolChoice: def.Name,
		MaxTokens:  prompt.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("%s invocation failed: %w", zero.ShapeName(), err)
	}

	raw, err := payload(resp, def.Name)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}

// Decode parses raw JSON into out, applies defaults and validates.
func Decode[T Shape](raw []byte, out *T) error {
	var decoded T
	name := decoded.ShapeName()
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &ParseError{Shape: name, Raw: string(raw), Err: err}
	}
	if n, ok := any(&decoded).(normalizer); ok {
		n.Normalize()
	}
	if err := decoded.Validate(); err != nil {
		return &ParseError{Shape: name, Raw: string(raw), Err: err}
	}
	*out = decoded
	return nil
}

// payload picks the submit tool call, falling back to JSON in the text.
func payload(resp llm.CompletionResponse, toolName string) ([]byte, error) {
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		for i := range resp.ToolCalls {
			if resp.ToolCalls[i].Name == toolName {
				call = resp.ToolCalls[i]
				break
			}
		}
		if len(call.Parameters) > 0 {
			raw, err := json.Marshal(call.Parameters)
			if err != nil {
				return nil, &ParseError{Shape: toolName, Err: err}
			}
			return raw, nil
		}
	}
	if obj := ExtractJSON(resp.Content); obj != "" {
		return []byte(obj), nil
	}
	return nil, ErrEmptyResult
}

// ExtractJSON returns the first JSON object in text, looking inside a fenced
// code block first. It returns "" when none is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			if obj := firstObject(body[:end]); obj != "" {
				return obj
			}
		}
	}
	return firstObject(text)
}

// firstObject scans for a balanced {...} that is valid JSON.
func firstObject(text string) string {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		depth, inString, escaped := 0, false, false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate
					}
					i = len(text)
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}
