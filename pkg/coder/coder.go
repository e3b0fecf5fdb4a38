// Package coder runs the tool-using coding sub-agent. One Run implements one
// task: the model gets the system instructions and the task context, drives
// the file tools, and finishes by calling task_complete.
package coder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/toolloop"
	"projectgen/pkg/logx"
	"projectgen/pkg/tools"
	"projectgen/pkg/workspace"
)

// DefaultMaxToolRounds bounds a single task when Options leaves it unset.
const DefaultMaxToolRounds = toolloop.DefaultMaxIterations

// Result is what one task produced.
type Result struct {
	Summary   string
	ToolCalls int
	Rounds    int
	// FilesWritten lists the root-relative paths of successful write_file calls, in order.
	FilesWritten []string
}

// ToolExecutionError wraps every failure of one coding task.
type ToolExecutionError struct {
	Err       error
	Kind      toolloop.OutcomeKind
	Rounds    int
	ToolCalls int
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("coding task failed (%s after %d rounds, %d tool calls): %v", e.Kind, e.Rounds, e.ToolCalls, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// IsToolExecutionError reports whether err wraps a *ToolExecutionError.
func IsToolExecutionError(err error) bool {
	var te *ToolExecutionError
	return errors.As(err, &te)
}

// Options tunes a Coder.
type Options struct {
	MaxToolRounds int
	MaxTokens     int
	DebugLogging  bool
	// OnToolResult observes every tool execution, e.g. to stream events.
	OnToolResult func(call llm.ToolCall, result llm.ToolResult, d time.Duration)
	// Workspace canonicalizes written paths. Without it the cleaned tool argument is recorded.
	Workspace *workspace.Gateway
}

// Coder executes coding tasks against one tool provider.
type Coder struct {
	client   llm.LLMClient
	provider toolloop.ToolProvider
	opts     Options
	logger   *logx.Logger
}

// New creates a coder. The provider must expose task_complete.
func New(client llm.LLMClient, provider toolloop.ToolProvider, opts Options, logger *logx.Logger) *Coder {
	if logger == nil {
		logger = logx.NewLogger("coder")
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	return &Coder{client: client, provider: provider, opts: opts, logger: logger}
}

// Run executes one task. Any loop outcome other than task_complete is returned
// as a *ToolExecutionError; the Result still carries what was done.
func (c *Coder) Run(ctx context.Context, system, user string) (Result, error) {
	var written []string
	observe := func(call llm.ToolCall, result llm.ToolResult, d time.Duration) {
		if call.Name == tools.ToolWriteFile && !result.IsError {
			if p, ok := c.writtenPath(call, result); ok {
				written = append(written, p)
			}
		}
		c.logger.Debug("🔧 %s finished in %s (error=%t)", call.Name, d.Round(time.Millisecond), result.IsError)
		if c.opts.OnToolResult != nil {
			c.opts.OnToolResult(call, result, d)
		}
	}

	loop := toolloop.New(c.client, c.logger)
	out := loop.Run(ctx, &toolloop.Config{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(system),
			llm.NewUserMessage(user),
		},
		ToolProvider:  c.provider,
		OnToolResult:  observe,
		MaxIterations: c.opts.MaxToolRounds,
		MaxTokens:     c.opts.MaxTokens,
		DebugLogging:  c.opts.DebugLogging,
	})

	res := Result{ToolCalls: out.ToolCalls, Rounds: out.Iteration, FilesWritten: written}
	if !out.OK() {
		return res, &ToolExecutionError{Err: out.Err, Kind: out.Kind, Rounds: out.Iteration, ToolCalls: out.ToolCalls}
	}
	if out.Signal != tools.SignalTaskComplete {
		return res, &ToolExecutionError{
			Err:       fmt.Errorf("unexpected signal %q", out.Signal),
			Kind:      out.Kind,
			Rounds:    out.Iteration,
			ToolCalls: out.ToolCalls,
		}
	}
	if summary, ok := out.EffectData.(string); ok {
		res.Summary = summary
	}
	c.logger.Info("✅ Task complete after %d rounds, %d tool calls: %s", res.Rounds, res.ToolCalls, res.Summary)
	return res, nil
}

func (c *Coder) writtenPath(call llm.ToolCall, result llm.ToolResult) (string, bool) {
	if c.opts.Workspace != nil {
		return c.opts.Workspace.WrittenPath(result.Content)
	}
	p, ok := call.Parameters["path"].(string)
	if !ok {
		return "", false
	}
	return filepath.ToSlash(filepath.Clean(p)), true
}
