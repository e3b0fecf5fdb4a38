package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/tools"
)

type verdict struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
	Level   string `json:"level"`
}

func (verdict) ShapeName() string { return "verdict" }

func (verdict) Schema() tools.InputSchema {
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"score":   {Type: "integer", Minimum: tools.Float(0), Maximum: tools.Float(10)},
			"comment": {Type: "string"},
			"level":   {Type: "string", Enum: []string{"low", "high"}},
		},
		Required: []string{"score"},
	}
}

func (v verdict) Validate() error {
	if v.Score < 0 || v.Score > 10 {
		return errors.New("score out of range")
	}
	return nil
}

func (v *verdict) Normalize() {
	if v.Level == "" {
		v.Level = "low"
	}
}

func prompt() Prompt {
	return Prompt{System: "judge", User: "rate this"}
}

func TestInvokeForcesSubmitTool(t *testing.T) {
	mock := llm.NewMockClient("m").ReplyToolCall("submit_verdict", map[string]any{"score": 7, "comment": "fine"})

	var got verdict
	require.NoError(t, Invoke(context.Background(), mock, prompt(), &got))
	assert.Equal(t, verdict{Score: 7, Comment: "fine", Level: "low"}, got)

	req := mock.Requests()[0]
	assert.Equal(t, "submit_verdict", req.ToolChoice)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "submit_verdict", req.Tools[0].Name)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Len(t, req.Messages, 2)
}

func TestInvokeFallsBackToTextJSON(t *testing.T) {
	mock := llm.NewMockClient("m").ReplyText("Here you go:\n```json\n{\"score\": 3, \"level\": \"high\"}\n```")

	var got verdict
	require.NoError(t, Invoke(context.Background(), mock, prompt(), &got))
	assert.Equal(t, 3, got.Score)
	assert.Equal(t, "high", got.Level)
}

func TestInvokeValidationFailure(t *testing.T) {
	mock := llm.NewMockClient("m").ReplyToolCall("submit_verdict", map[string]any{"score": 42})

	var got verdict
	err := Invoke(context.Background(), mock, prompt(), &got)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Zero(t, got, "out must be untouched on failure")
}

func TestInvokeDecodeFailure(t *testing.T) {
	mock := llm.NewMockClient("m").ReplyToolCall("submit_verdict", map[string]any{"score": "seven"})

	var got verdict
	var pe *ParseError
	require.ErrorAs(t, Invoke(context.Background(), mock, prompt(), &got), &pe)
	assert.Equal(t, "verdict", pe.Shape)
	assert.Contains(t, pe.Raw, "seven")
}

func TestInvokeEmptyResult(t *testing.T) {
	mock := llm.NewMockClient("m").ReplyText("I cannot help with that.")

	var got verdict
	assert.ErrorIs(t, Invoke(context.Background(), mock, prompt(), &got), ErrEmptyResult)
}

func TestInvokeClientError(t *testing.T) {
	boom := errors.New("boom")
	var got verdict
	err := Invoke(context.Background(), llm.NewMockClient("m").Fail(boom), prompt(), &got)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsParseError(err))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"prefix {\"a\": {\"b\": \"}\"}} suffix", `{"a": {"b": "}"}}`},
		{"```\n{\"x\": true}\n```", `{"x": true}`},
		{"{not json} then {\"ok\":1}", `{"ok":1}`},
		{"no braces", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractJSON(tt.in), "input %q", tt.in)
	}
}
