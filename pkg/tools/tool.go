// Package tools provides the tool surface exposed to LLM agents: sandboxed file
// access, command execution, git, dependency manifests, documentation lookup and
// the explicit task_complete signal.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Property describes one field of a tool input schema.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
}

// InputSchema is the JSON-schema-like description of a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToMap renders the schema as a generic JSON object for provider SDKs.
func (s InputSchema) ToMap() map[string]any {
	out := map[string]any{"type": s.Type}
	out["properties"] = s.PropertiesMap()
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// PropertiesMap renders only the properties as generic JSON values.
func (s InputSchema) PropertiesMap() map[string]any {
	out := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		out[name] = prop.toMap()
	}
	return out
}

func (p Property) toMap() map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any{"type": p.Type}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{"type": p.Type}
	}
	return m
}

// Float returns a pointer to v, for schema bounds.
func Float(v float64) *float64 {
	return &v
}

// ToolDefinition is what an LLM sees for one tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ProcessEffect lets a tool signal the calling loop instead of only returning text.
type ProcessEffect struct {
	Signal string
	Data   any
}

// ExecResult is the outcome of one tool execution.
type ExecResult struct {
	Content       string
	ProcessEffect *ProcessEffect
}

// Tool is a single callable tool.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	PromptDocumentation() string
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// textResult wraps plain text.
func textResult(content string) *ExecResult {
	return &ExecResult{Content: content}
}

// jsonResult marshals payload as the tool output.
func jsonResult(payload map[string]any) (*ExecResult, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

// errorResult reports a failure the model can read and react to.
func errorResult(msg string) (*ExecResult, error) {
	return jsonResult(map[string]any{"success": false, "error": msg})
}

// requiredString extracts a non-empty string argument.
func requiredString(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required and must be a string", name)
	}
	return v, nil
}

// optionalString extracts a string argument, falling back to def.
func optionalString(args map[string]any, name, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}

// stringSlice extracts a list of strings; JSON decoders hand us []any.
func stringSlice(args map[string]any, name string) []string {
	switch v := args[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
