// Package exec runs external commands (git, package managers, user-requested
// shell commands) on behalf of the pipeline and its tools.
package exec

import (
	"context"
	"time"
)

// DefaultTimeout bounds commands that set no explicit timeout.
const DefaultTimeout = 30 * time.Second

// Executor runs commands.
type Executor interface {
	Run(ctx context.Context, cmd []string, opts *Opts) (Result, error)
	Name() string
}

// Opts configures one command.
type Opts struct {
	// Env adds KEY=VALUE pairs to the inherited environment.
	Env     []string
	Timeout time.Duration
	WorkDir string
}

// Result is the outcome of a command. A non-zero ExitCode is not an error.
type Result struct {
	Stdout       string
	Stderr       string
	ExecutorUsed string
	Duration     time.Duration
	ExitCode     int
	TimedOut     bool
}

// Success reports whether the command exited 0 without timing out.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Combined returns stdout and stderr joined the way a terminal would show them.
func (r Result) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}
