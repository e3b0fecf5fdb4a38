package tools

import (
	"context"
	"fmt"
	"strings"

	execpkg "projectgen/pkg/exec"
	"projectgen/pkg/scaffold"
	"projectgen/pkg/workspace"
)

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolGitInit, "Initialize a git repository with a default .gitignore", func(ctx AgentContext) (Tool, error) {
		return newGitTool(ctx, ToolGitInit)
	})
	Register(ToolGitCommit, "Stage all changes and commit", func(ctx AgentContext) (Tool, error) {
		return newGitTool(ctx, ToolGitCommit)
	})
	Register(ToolGitStatus, "Show git status", func(ctx AgentContext) (Tool, error) {
		return newGitTool(ctx, ToolGitStatus)
	})
}

// Commits are authored under a fixed identity so they work on hosts without git config.
var gitIdentity = []string{"-c", "user.name=projectgen", "-c", "user.email=projectgen@localhost"}

// Git runs git inside a project root.
type Git struct {
	gw       *workspace.Gateway
	executor execpkg.Executor
}

// NewGit returns a git helper for gw. A nil executor runs locally.
func NewGit(gw *workspace.Gateway, e execpkg.Executor) *Git {
	if e == nil {
		e = execpkg.NewLocalExec()
	}
	return &Git{gw: gw, executor: e}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	root, err := g.gw.Root()
	if err != nil {
		return "", err
	}
	res, err := g.executor.Run(ctx, append([]string{"git"}, args...), &execpkg.Opts{WorkDir: root})
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	if !res.Success() {
		return res.Combined(), fmt.Errorf("git %s exited %d: %s", args[0], res.ExitCode, strings.TrimSpace(res.Combined()))
	}
	return res.Combined(), nil
}

// Init creates the repository and a .gitignore if none exists.
func (g *Git) Init(ctx context.Context) error {
	if _, err := g.run(ctx, "init", "-q"); err != nil {
		return err
	}
	if _, exists, err := g.gw.ReadFile(".gitignore"); err != nil {
		return err
	} else if !exists {
		if _, err := g.gw.WriteFile(".gitignore", scaffold.Gitignore); err != nil {
			return fmt.Errorf("write .gitignore: %w", err)
		}
	}
	return nil
}

// Commit stages everything and commits. An empty tree is not an error.
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return "", err
	}
	status, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(status) == "" {
		return "nothing to commit", nil
	}
	args := append(append([]string(nil), gitIdentity...), "commit", "-q", "-m", message)
	if _, err := g.run(ctx, args...); err != nil {
		return "", err
	}
	return g.run(ctx, "log", "--oneline", "-1")
}

// Status returns short-form status output.
func (g *Git) Status(ctx context.Context) (string, error) {
	return g.run(ctx, "status", "--short", "--branch")
}

// GitTool adapts one Git operation to the Tool interface.
type GitTool struct {
	git  *Git
	name string
}

func newGitTool(ctx AgentContext, name string) (Tool, error) {
	if ctx.Gateway == nil {
		return nil, errNoGateway
	}
	return &GitTool{git: NewGit(ctx.Gateway, ctx.Executor), name: name}, nil
}

func (t *GitTool) Name() string { return t.name }

func (t *GitTool) Definition() ToolDefinition {
	def := ToolDefinition{
		Name:        t.name,
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	}
	switch t.name {
	case ToolGitInit:
		def.Description = "Initialize a git repository in the project root and write a default .gitignore."
	case ToolGitCommit:
		def.Description = "Stage all changes in the project and create a commit."
		def.InputSchema.Properties["message"] = Property{Type: "string", Description: "Commit message"}
		def.InputSchema.Required = []string{"message"}
	case ToolGitStatus:
		def.Description = "Show the git status of the project."
	}
	return def
}

func (t *GitTool) PromptDocumentation() string {
	switch t.name {
	case ToolGitCommit:
		return "- **git_commit** - Commit all changes\n  - Parameters: message (string, REQUIRED)"
	case ToolGitInit:
		return "- **git_init** - Initialize a repository (no parameters)"
	default:
		return "- **git_status** - Show repository status (no parameters)"
	}
}

func (t *GitTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	var (
		out string
		err error
	)
	switch t.name {
	case ToolGitInit:
		if err = t.git.Init(ctx); err == nil {
			out = "Initialized git repository"
		}
	case ToolGitCommit:
		message, argErr := requiredString(args, "message")
		if argErr != nil {
			return nil, argErr
		}
		out, err = t.git.Commit(ctx, message)
	case ToolGitStatus:
		out, err = t.git.Status(ctx)
	default:
		return nil, fmt.Errorf("unknown git tool %q", t.name)
	}
	if err != nil {
		return textResult(workspace.ErrorPrefix + err.Error()), nil
	}
	return textResult(out), nil
}
