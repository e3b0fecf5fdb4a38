package toolloop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

func seed() []llm.CompletionMessage {
	return []llm.CompletionMessage{
		llm.NewSystemMessage("You are a coder."),
		llm.NewUserMessage("Create main.txt containing hello."),
	}
}

func realProvider(t *testing.T) (*tools.Provider, *workspace.Gateway) {
	t.Helper()
	gw := workspace.New(t.TempDir(), "demo")
	p := tools.NewProvider(tools.AgentContext{Gateway: gw}, []string{tools.ToolWriteFile, tools.ToolReadFile, tools.ToolTaskComplete})
	return p, gw
}

func TestRunStopsOnTaskComplete(t *testing.T) {
	provider, gw := realProvider(t)
	mock := llm.NewMockClient("m").
		ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "main.txt", "content": "hello"}).
		ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "wrote main.txt"})

	var seen []string
	out := New(mock, nil).Run(context.Background(), &Config{
		Messages:     seed(),
		ToolProvider: provider,
		OnToolResult: func(call llm.ToolCall, _ llm.ToolResult, _ time.Duration) { seen = append(seen, call.Name) },
	})

	require.True(t, out.OK(), "outcome %s: %v", out.Kind, out.Err)
	assert.Equal(t, tools.SignalTaskComplete, out.Signal)
	assert.Equal(t, "wrote main.txt", out.EffectData)
	assert.Equal(t, 2, out.ToolCalls)
	assert.Equal(t, 2, out.Iteration)
	assert.Equal(t, []string{tools.ToolWriteFile, tools.ToolTaskComplete}, seen)

	root, err := gw.Root()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "main.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// seed + (assistant, results) per iteration
	assert.Len(t, out.Messages, 6)
}

func TestToolErrorsAreFedBack(t *testing.T) {
	provider, _ := realProvider(t)
	mock := llm.NewMockClient("m").
		ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "../../etc/passwd", "content": "x"}).
		ReplyToolCall("no_such_tool", nil).
		ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "gave up"})

	out := New(mock, nil).Run(context.Background(), &Config{Messages: seed(), ToolProvider: provider})
	require.True(t, out.OK())

	reqs := mock.Requests()
	escape := reqs[1].Messages[len(reqs[1].Messages)-1].ToolResults[0]
	assert.True(t, escape.IsError, "escape attempt must be reported as error: %q", escape.Content)
	unknown := reqs[2].Messages[len(reqs[2].Messages)-1].ToolResults[0]
	assert.True(t, unknown.IsError)
	assert.Contains(t, unknown.Content, "not allowed")
}

func TestNoToolTwice(t *testing.T) {
	provider, _ := realProvider(t)
	mock := llm.NewMockClient("m").ReplyText("I think I am done").ReplyText("really done")

	out := New(mock, nil).Run(context.Background(), &Config{Messages: seed(), ToolProvider: provider})
	assert.Equal(t, OutcomeNoToolTwice, out.Kind)
	assert.ErrorIs(t, out.Err, ErrNoTerminalTool)

	second := mock.Requests()[1].Messages
	assert.Equal(t, noToolNudge, second[len(second)-1].Content)
}

func TestMaxIterations(t *testing.T) {
	provider, _ := realProvider(t)
	mock := llm.NewMockClient("m")
	mock.Handler = func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{ToolCalls: []llm.ToolCall{{ID: "r", Name: tools.ToolReadFile, Parameters: map[string]any{"path": "x"}}}}, nil
	}

	out := New(mock, nil).Run(context.Background(), &Config{Messages: seed(), ToolProvider: provider, MaxIterations: 3})
	assert.Equal(t, OutcomeMaxIterations, out.Kind)
	assert.ErrorIs(t, out.Err, ErrMaxIterations)
	assert.Equal(t, 3, mock.Calls())
}

func TestLLMErrorAndCancellation(t *testing.T) {
	provider, _ := realProvider(t)
	boom := errors.New("boom")
	out := New(llm.NewMockClient("m").Fail(boom), nil).Run(context.Background(), &Config{Messages: seed(), ToolProvider: provider})
	assert.Equal(t, OutcomeLLMError, out.Kind)
	assert.ErrorIs(t, out.Err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = New(llm.NewMockClient("m"), nil).Run(ctx, &Config{Messages: seed(), ToolProvider: provider})
	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.ErrorIs(t, out.Err, ErrGracefulShutdown)
}

func TestIsErrorContent(t *testing.T) {
	assert.True(t, isErrorContent("ERROR: path escapes"))
	assert.True(t, isErrorContent(`{"error":"x","success":false}`))
	assert.False(t, isErrorContent(`{"success":true}`))
	assert.False(t, isErrorContent("WROTE:main.txt"))
}
