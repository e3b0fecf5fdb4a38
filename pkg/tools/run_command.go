package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	execpkg "projectgen/pkg/exec"
	"projectgen/pkg/workspace"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolRunCommand, "Run a shell command in the project root", func(ctx AgentContext) (Tool, error) {
		if ctx.Gateway == nil {
			return nil, errNoGateway
		}
		e := ctx.Executor
		if e == nil {
			e = execpkg.NewLocalExec()
		}
		timeout := ctx.CommandTimeout
		if timeout <= 0 {
			timeout = execpkg.DefaultTimeout
		}
		return &RunCommandTool{gw: ctx.Gateway, executor: e, timeout: timeout}, nil
	})
}

// maxCommandOutput caps what is echoed back to the model.
const maxCommandOutput = 10000

// RunCommandTool runs a shell command with the project root as working directory.
type RunCommandTool struct {
	gw       *workspace.Gateway
	executor execpkg.Executor
	timeout  time.Duration
}

func (t *RunCommandTool) Name() string { return ToolRunCommand }

func (t *RunCommandTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolRunCommand,
		Description: fmt.Sprintf("Run a shell command from the project root (timeout %s). "+
			"Use it to install dependencies, run linters or tests. Returns the exit code and output.", t.timeout),
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command": {Type: "string", Description: "Shell command to run, e.g. 'python -m pytest -q'"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *RunCommandTool) PromptDocumentation() string {
	return `- **run_command** - Run a shell command in the project root
  - Parameters: command (string, REQUIRED)
  - Output is truncated; long-running servers will be killed by the timeout`
}

func (t *RunCommandTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, err := requiredString(args, "command")
	if err != nil {
		return nil, err
	}
	root, err := t.gw.Root()
	if err != nil {
		return textResult(workspace.ErrorPrefix + err.Error()), nil
	}

	res, err := execpkg.Shell(ctx, t.executor, command, &execpkg.Opts{WorkDir: root, Timeout: t.timeout})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return textResult(workspace.ErrorPrefix + err.Error()), nil
	}
	if res.TimedOut {
		return textResult(fmt.Sprintf("%scommand timed out after %s\n%s", workspace.ErrorPrefix, t.timeout, truncate(res.Combined()))), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "exit_code: %d\n", res.ExitCode)
	if res.Stdout != "" {
		b.WriteString("stdout:\n")
		b.WriteString(truncate(res.Stdout))
		b.WriteString("\n")
	}
	if res.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(truncate(res.Stderr))
		b.WriteString("\n")
	}
	return textResult(b.String()), nil
}

func truncate(s string) string {
	if len(s) <= maxCommandOutput {
		return s
	}
	return s[:maxCommandOutput] + "\n... (truncated)"
}
