package utils

import (
	"strings"
	"testing"
)

func TestNewTokenCounter(t *testing.T) {
	for _, model := range []string{"gpt-4o", "o4-mini", "claude-sonnet-4-5", "gemini-2.0-flash", ""} {
		t.Run(model, func(t *testing.T) {
			counter, err := NewTokenCounter(model)
			if err != nil {
				t.Fatalf("NewTokenCounter(%q) failed: %v", model, err)
			}
			if counter == nil {
				t.Fatalf("NewTokenCounter(%q) returned nil counter", model)
			}
		})
	}
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		text      string
		minTokens int
		maxTokens int
	}{
		{"", 0, 0},
		{"hello", 1, 2},
		{"def main():\n    print('hello world')\n", 5, 20},
	}
	for _, tt := range tests {
		got := CountTokensSimple(tt.text)
		if got < tt.minTokens || got > tt.maxTokens {
			t.Errorf("CountTokensSimple(%q) = %d, want [%d, %d]", tt.text, got, tt.minTokens, tt.maxTokens)
		}
	}
}

func TestCountForModelMatchesSimpleForDefaultEncoding(t *testing.T) {
	text := "Build a todo app with FastAPI"
	if CountForModel("claude-sonnet-4-5", text) != CountTokensSimple(text) {
		t.Error("non-OpenAI models should use the default encoding")
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("word ", 1000)
	out := counter.TruncateToTokenLimit(long, 100)
	if counter.CountTokens(out) > 110 {
		t.Errorf("truncated text still has %d tokens", counter.CountTokens(out))
	}
	if counter.TruncateToTokenLimit("short", 100) != "short" {
		t.Error("short text must be unchanged")
	}
}

func TestNilCounterFallsBack(t *testing.T) {
	var tc *TokenCounter
	if got := tc.CountTokens("12345678"); got != 2 {
		t.Errorf("fallback count = %d, want 2", got)
	}
}
