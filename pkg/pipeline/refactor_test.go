package pipeline

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefactorRewritesFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.path("demo", ""), 0o755))
	require.NoError(t, os.WriteFile(h.path("demo", "app.py"), []byte("def f( ):\n  return 1\n"), 0o644))
	h.codeWrites("app.py", "def f():\n    return 1\n")

	res, err := h.engine(t).Refactor(context.Background(), RefactorRequest{
		ProjectName:  "demo",
		Filepath:     "app.py",
		Instructions: "format with black",
		Issues:       []string{"bad spacing"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, res.FilesWritten)

	data, err := os.ReadFile(h.path("demo", "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1\n", string(data))

	reqs := h.coder.Requests()
	require.NotEmpty(t, reqs)
	last := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	assert.Contains(t, last, "format with black")
	assert.Contains(t, last, "bad spacing")
	assert.Contains(t, last, "def f( ):")
}

func TestRefactorMissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine(t).Refactor(context.Background(), RefactorRequest{ProjectName: "demo", Filepath: "nope.py"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Zero(t, h.coder.Calls())
}

func TestRefactorRejectsEscape(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine(t).Refactor(context.Background(), RefactorRequest{ProjectName: "demo", Filepath: "../../etc/passwd"})
	require.Error(t, err)
	assert.Zero(t, h.coder.Calls())
}
