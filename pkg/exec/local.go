package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// LocalExec runs commands directly on the host.
type LocalExec struct{}

// NewLocalExec returns a host executor.
func NewLocalExec() *LocalExec {
	return &LocalExec{}
}

// Name returns "local".
func (e *LocalExec) Name() string {
	return "local"
}

// Run executes cmd. Failures to start are errors; non-zero exits and timeouts
// are reported in Result.
func (e *LocalExec) Run(ctx context.Context, cmd []string, opts *Opts) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, errors.New("command cannot be empty")
	}
	if opts == nil {
		opts = &Opts{}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd[0], cmd[1:]...)
	// Children of a killed shell may keep the output pipes open.
	c.WaitDelay = time.Second
	if opts.WorkDir != "" {
		if _, err := os.Stat(opts.WorkDir); err != nil {
			return Result{}, fmt.Errorf("working directory does not exist: %s", opts.WorkDir)
		}
		c.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		c.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr strings.Builder
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:       stdout.String(),
		Stderr:       stderr.String(),
		ExecutorUsed: e.Name(),
		Duration:     time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("run %s: %w", cmd[0], err)
	}
	return res, nil
}

// Shell runs command through sh -c.
func Shell(ctx context.Context, e Executor, command string, opts *Opts) (Result, error) {
	return e.Run(ctx, []string{"sh", "-c", command}, opts)
}
