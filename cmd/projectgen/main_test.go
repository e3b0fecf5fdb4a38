package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgen/pkg/config"
	"projectgen/pkg/persistence"
	"projectgen/pkg/pipeline"
	"projectgen/pkg/workspace"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"run", "templates", "config", "secrets", "mcp", "history", "refactor"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing subcommand %s", name)
	}
}

func TestRunFlags(t *testing.T) {
	for _, name := range []string{"name", "template", "recursion-limit", "no-review", "no-tests", "no-git", "docker", "resume", "listen"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "r", runCmd.Flags().Lookup("recursion-limit").Shorthand)
}

func TestProjectNameFrom(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"A todo app in Python", "a_todo_app_in"},
		{"Flask API!", "flask_api"},
		{"../../etc", "etc"},
		{"   ", "generated_app"},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			got := projectNameFrom(tt.prompt)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, workspace.ValidateProjectName(got))
		})
	}
}

func TestRunOptionsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	t.Cleanup(func() {
		runRecursionLimit, runNoReview, runNoTests, runNoGit, runDocker = 0, false, false, false, false
	})

	opts := runOptions(cfg)
	assert.True(t, opts.EnableReview)
	assert.True(t, opts.EnableGit)
	assert.Equal(t, cfg.Limits.MaxRecursionLimit, opts.RecursionLimit)

	runRecursionLimit, runNoReview, runNoTests, runNoGit, runDocker = 7, true, true, true, true
	opts = runOptions(cfg)
	assert.Equal(t, 7, opts.RecursionLimit)
	assert.False(t, opts.EnableReview)
	assert.False(t, opts.EnableTesting)
	assert.False(t, opts.EnableGit)
	assert.True(t, opts.EnableDocker)
}

func TestProgressTracksEvents(t *testing.T) {
	p := newProgress("demo")
	assert.Nil(t, p.snapshot())

	now := time.Now()
	p.observe(pipeline.Event{Time: now, Type: pipeline.EventRunStarted, RunID: "r1", Status: pipeline.StatusPlanning})
	p.observe(pipeline.Event{Type: pipeline.EventToolCall, RunID: "r1", Status: pipeline.StatusCoding, Step: 2})
	p.observe(pipeline.Event{Type: pipeline.EventTaskCompleted, RunID: "r1", Status: pipeline.StatusCoding, Step: 2})

	snap, ok := p.snapshot().(runStatus)
	require.True(t, ok)
	assert.Equal(t, "r1", snap.RunID)
	assert.Equal(t, "demo", snap.Project)
	assert.Equal(t, pipeline.StatusCoding, snap.Status)
	assert.Equal(t, 1, snap.Tasks)
	assert.Equal(t, 1, snap.ToolCalls)
	assert.Equal(t, now, snap.StartedAt)
	require.NotNil(t, snap.LastEvent)
	assert.Equal(t, pipeline.EventTaskCompleted, snap.LastEvent.Type)
}

func TestTemplatesCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")

	_, err = executeCommand(rootCmd, "templates", "show", "no-such-template")
	assert.Error(t, err)
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := executeCommand(rootCmd, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_recursion_limit: 100")

	_, err = executeCommand(rootCmd, "--config", path, "config", "init")
	assert.Error(t, err)
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", runDuration(&persistence.Run{StartedAt: start}))
	end := start.Add(90 * time.Second)
	assert.Equal(t, "1m30s", runDuration(&persistence.Run{StartedAt: start, FinishedAt: &end}))
	assert.Equal(t, "abc...", truncate("abcdefgh", 6))
}
