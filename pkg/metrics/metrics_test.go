package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmmetrics "projectgen/pkg/agent/middleware/metrics"
)

func TestTokenTrackerAggregatesByRole(t *testing.T) {
	tr := NewTokenTracker()
	tr.ObserveRequest("gpt-4o", "coder", 100, 50, 0.01, true, "", time.Second)
	tr.ObserveRequest("gpt-4o", "coder", 200, 25, 0.02, false, "transient", time.Second)
	tr.ObserveRequest("gemini-2.0-flash", "planner", 10, 5, 0.001, true, "", time.Second)
	tr.ObserveRequest("m", "refactor", 1, 1, 0, true, "", 0)

	usage := tr.Usage()
	require.Len(t, usage, 3)
	assert.Equal(t, "planner", usage[0].Role)
	assert.Equal(t, "coder", usage[1].Role)
	assert.Equal(t, "refactor", usage[2].Role, "unknown roles sort last")

	coder := usage[1]
	assert.Equal(t, 2, coder.Requests)
	assert.Equal(t, 1, coder.Failures)
	assert.Equal(t, 375, coder.TotalTokens())
	assert.InDelta(t, 0.03, coder.Cost, 1e-9)

	total := tr.Total()
	assert.Equal(t, 4, total.Requests)
	assert.Equal(t, 392, total.TotalTokens())

	rows := tr.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "total", rows[3][0])
	assert.Equal(t, "2 (1 failed)", rows[1][2])
	assert.Len(t, rows[0], len(TableHeaders))
}

func TestWriteSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := llmmetrics.NewPrometheusRecorder(reg)
	rec.ObserveRequest("gpt-4o", "architect", 10, 20, 0.5, true, "", time.Second)

	path, err := WriteSnapshot(reg, filepath.Join(t.TempDir(), "run-1"))
	require.NoError(t, err)
	assert.Equal(t, SnapshotFileName, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE llm_tokens_total counter")
	assert.Contains(t, text, `llm_tokens_total{model="gpt-4o",role="architect",type="completion"} 20`)
}
