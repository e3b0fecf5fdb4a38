package logx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

func TestLogFormat(t *testing.T) {
	buf := captureOutput(t)

	NewLogger("architect").Info("Created %d tasks", 3)

	out := buf.String()
	if !strings.Contains(out, "[architect]") {
		t.Errorf("expected component in output, got: %s", out)
	}
	if !strings.Contains(out, "INFO: Created 3 tasks") {
		t.Errorf("expected level and message, got: %s", out)
	}
	if !strings.Contains(out, "T") || !strings.Contains(out, "Z]") {
		t.Errorf("expected ISO timestamp, got: %s", out)
	}
}

func TestDebugRespectsSwitch(t *testing.T) {
	buf := captureOutput(t)
	t.Cleanup(func() { SetDebug(false) })

	logger := NewLogger("coder")
	SetDebug(false)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output with debug off, got %q", buf.String())
	}

	SetDebug(true)
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "DEBUG: shown") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestDomainFiltering(t *testing.T) {
	buf := captureOutput(t)
	t.Cleanup(func() { SetDebug(false) })

	SetDebug(true, "coder")
	ctx := WithComponent(context.Background(), "pipeline")

	Debug(ctx, "reviewer", "dropped")
	Debug(ctx, "coder", "kept %d", 1)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("reviewer domain should be filtered: %s", out)
	}
	if !strings.Contains(out, "[pipeline] DEBUG: [coder] kept 1") {
		t.Errorf("expected coder debug line with component, got: %s", out)
	}
}

func TestBufferFiltersByComponent(t *testing.T) {
	captureOutput(t)
	start := time.Now().Add(-time.Second)

	NewLogger("tester").Warn("no framework for %s", "main.rb")
	NewLogger("planner").Info("plan ready")

	entries := RecentEntries("tester", start)
	if len(entries) == 0 {
		t.Fatal("expected buffered tester entries")
	}
	last := entries[len(entries)-1]
	if last.Level != string(LevelWarn) || last.Message != "no framework for main.rb" {
		t.Errorf("unexpected entry: %+v", last)
	}
	for _, e := range entries {
		if e.Component != "tester" {
			t.Errorf("unexpected component %q", e.Component)
		}
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	b := &InMemoryLogBuffer{maxSize: 2}
	for _, m := range []string{"a", "b", "c"} {
		b.Add(&LogEntry{Message: m})
	}
	got := b.Entries("", time.Time{})
	if len(got) != 2 || got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestSubscribe(t *testing.T) {
	captureOutput(t)
	ch, cancel := Subscribe(4)
	defer cancel()

	NewLogger("finalizer").Info("git initialized")

	select {
	case e := <-ch:
		if e.Component != "finalizer" || e.Message != "git initialized" {
			t.Errorf("unexpected entry %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
}

func TestFileLogging(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "run.log")

	closeFn, err := EnableFileLogging(path)
	if err != nil {
		t.Fatalf("EnableFileLogging: %v", err)
	}
	NewLogger("planner").Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[planner] INFO: to file") {
		t.Errorf("file missing line: %s", data)
	}
}

func TestWrap(t *testing.T) {
	captureOutput(t)
	if Wrap(nil, "noop") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := os.ErrNotExist
	err := Wrap(base, "load checkpoint")
	if err.Error() != "load checkpoint: "+base.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
}
