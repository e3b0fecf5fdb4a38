package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/agent/llmerrors"
)

type observation struct {
	model, role      string
	prompt, complete int
	cost             float64
	success          bool
	errorType        string
}

type captureRecorder struct {
	seen []observation
}

func (c *captureRecorder) ObserveRequest(model, role string, p, comp int, cost float64, success bool, errorType string, _ time.Duration) {
	c.seen = append(c.seen, observation{model, role, p, comp, cost, success, errorType})
}

func req() llm.CompletionRequest {
	return llm.CompletionRequest{Messages: []llm.CompletionMessage{llm.NewUserMessage("write a hello world program")}}
}

func TestMiddlewareUsesReportedUsage(t *testing.T) {
	rec := &captureRecorder{}
	mock := llm.NewMockClient("gpt-4o").Reply(llm.CompletionResponse{
		Content: "ok",
		Usage:   llm.Usage{PromptTokens: 1000, CompletionTokens: 500},
	})

	_, err := llm.Chain(mock, Middleware(rec, "planner", nil, nil)).Complete(context.Background(), req())
	require.NoError(t, err)
	require.Len(t, rec.seen, 1)

	got := rec.seen[0]
	assert.Equal(t, "gpt-4o", got.model)
	assert.Equal(t, "planner", got.role)
	assert.Equal(t, 1000, got.prompt)
	assert.Equal(t, 500, got.complete)
	assert.True(t, got.success)
	assert.Greater(t, got.cost, 0.0)
}

func TestMiddlewareEstimatesMissingUsage(t *testing.T) {
	rec := &captureRecorder{}
	mock := llm.NewMockClient("unknown-model").ReplyText("print('hello')")

	_, err := llm.Chain(mock, Middleware(rec, "coder", nil, nil)).Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Positive(t, rec.seen[0].prompt)
	assert.Positive(t, rec.seen[0].complete)
}

func TestMiddlewareRecordsFailures(t *testing.T) {
	rec := &captureRecorder{}
	mock := llm.NewMockClient("m").Fail(llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429"))

	_, err := llm.Chain(mock, Middleware(rec, "reviewer", nil, nil)).Complete(context.Background(), req())
	require.Error(t, err)
	require.Len(t, rec.seen, 1)
	assert.False(t, rec.seen[0].success)
	assert.Equal(t, "rate_limit", rec.seen[0].errorType)
	assert.Zero(t, rec.seen[0].prompt)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusRecorder(reg)

	p.ObserveRequest("m", "coder", 10, 5, 0.01, true, "", time.Second)
	p.ObserveRequest("m", "coder", 0, 0, 0, false, "transient", time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(p.requestsTotal.WithLabelValues("m", "coder", statusSuccess, "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.requestsTotal.WithLabelValues("m", "coder", statusError, "transient")), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(p.tokensTotal.WithLabelValues("m", "coder", "prompt")), 0)
	assert.InDelta(t, 0.01, testutil.ToFloat64(p.costsTotal.WithLabelValues("m", "coder")), 1e-9)

	// A second recorder on a fresh registry must not panic.
	assert.NotPanics(t, func() { NewPrometheusRecorder(prometheus.NewRegistry()) })
}

func TestMultiRecorder(t *testing.T) {
	a, b := &captureRecorder{}, &captureRecorder{}
	Multi(a, nil, b).ObserveRequest("m", "tester", 1, 1, 0, true, "", 0)
	assert.Len(t, a.seen, 1)
	assert.Len(t, b.seen, 1)
	assert.IsType(t, &NoopRecorder{}, Multi())
}
