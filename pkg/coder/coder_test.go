package coder

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
	"projectgen/pkg/agent/llmerrors"
	"projectgen/pkg/agent/toolloop"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

func newCoder(t *testing.T, client llm.LLMClient, rounds int) (*Coder, *workspace.Gateway) {
	t.Helper()
	gw := workspace.New(t.TempDir(), "demo")
	provider := tools.NewProvider(tools.AgentContext{Gateway: gw}, tools.CoderTools(false, false))
	return New(client, provider, Options{MaxToolRounds: rounds, Workspace: gw}, nil), gw
}

func TestRunWritesFileAndCompletes(t *testing.T) {
	mock := llm.NewMockClient("m").
		ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "main.txt", "content": "hello"}).
		ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "wrote hello"})
	c, gw := newCoder(t, mock, 0)

	res, err := c.Run(context.Background(), "system", "write hello to main.txt")
	require.NoError(t, err)
	assert.Equal(t, "wrote hello", res.Summary)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Equal(t, []string{"main.txt"}, res.FilesWritten)

	root, err := gw.Root()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "main.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	first := mock.Requests()[0]
	require.Len(t, first.Messages, 2, "a task starts from exactly two messages")
	assert.Equal(t, llm.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, llm.RoleUser, first.Messages[1].Role)
}

func TestFilesWrittenAreRootRelative(t *testing.T) {
	for _, ws := range []bool{true, false} {
		mock := llm.NewMockClient("m").
			ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "main.txt", "content": "a"}).
			ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "./src/../main.txt", "content": "b"}).
			ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "src//app.py", "content": "c"}).
			ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "ok"})
		gw := workspace.New(t.TempDir(), "demo")
		provider := tools.NewProvider(tools.AgentContext{Gateway: gw}, tools.CoderTools(false, false))
		opts := Options{}
		if ws {
			opts.Workspace = gw
		}

		res, err := New(mock, provider, opts, nil).Run(context.Background(), "s", "u")
		require.NoError(t, err)
		assert.Equal(t, []string{"main.txt", "main.txt", "src/app.py"}, res.FilesWritten, "workspace=%t", ws)
	}
}

func TestEscapeAttemptIsReportedNotFatal(t *testing.T) {
	mock := llm.NewMockClient("m").
		ReplyToolCall(tools.ToolWriteFile, map[string]any{"path": "../../etc/passwd", "content": "x"}).
		ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "could not write"})
	c, _ := newCoder(t, mock, 0)

	res, err := c.Run(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Empty(t, res.FilesWritten)

	result := mock.Requests()[1].Messages[3].ToolResults[0]
	assert.True(t, result.IsError)
	assert.True(t, workspace.IsError(result.Content), "write tool must return a failure string: %q", result.Content)
}

func TestMaxRoundsIsToolExecutionError(t *testing.T) {
	mock := llm.NewMockClient("m")
	mock.Handler = func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{ToolCalls: []llm.ToolCall{{ID: "1", Name: tools.ToolListFiles, Parameters: map[string]any{}}}}, nil
	}
	c, _ := newCoder(t, mock, 3)

	res, err := c.Run(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, IsToolExecutionError(err))
	assert.ErrorIs(t, err, toolloop.ErrMaxIterations)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 3, mock.Calls())

	var te *ToolExecutionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, toolloop.OutcomeMaxIterations, te.Kind)
}

func TestLLMFailureIsWrapped(t *testing.T) {
	cause := llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")
	c, _ := newCoder(t, llm.NewMockClient("m").Fail(cause), 0)

	_, err := c.Run(context.Background(), "s", "u")
	assert.True(t, IsToolExecutionError(err))
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
}

func TestTextOnlyRepliesFail(t *testing.T) {
	c, _ := newCoder(t, llm.NewMockClient("m").ReplyText("done!").ReplyText("really done"), 0)

	_, err := c.Run(context.Background(), "s", "u")
	assert.ErrorIs(t, err, toolloop.ErrNoTerminalTool)
}

func TestOnToolResultObserver(t *testing.T) {
	mock := llm.NewMockClient("m").
		ReplyToolCall(tools.ToolListFiles, map[string]any{}).
		ReplyToolCall(tools.ToolTaskComplete, map[string]any{"summary": "ok"})
	gw := workspace.New(t.TempDir(), "demo")
	provider := tools.NewProvider(tools.AgentContext{Gateway: gw}, tools.CoderTools(false, false))

	var names []string
	c := New(mock, provider, Options{OnToolResult: func(call llm.ToolCall, _ llm.ToolResult, _ time.Duration) {
		names = append(names, call.Name)
	}}, nil)
	_, err := c.Run(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, []string{tools.ToolListFiles, tools.ToolTaskComplete}, names)
}
