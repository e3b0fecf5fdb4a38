// Package metrics aggregates LLM usage for the end-of-run summary and writes
// Prometheus snapshots of a run's collectors.
package metrics

import (
	"fmt"
	"slices"
	"sync"
	"time"

	llmmetrics "projectgen/pkg/agent/middleware/metrics"
	"projectgen/pkg/config"
)

// Usage is the accumulated LLM usage of one role.
type Usage struct {
	Role             string        `json:"role"`
	Model            string        `json:"model"`
	Requests         int           `json:"requests"`
	Failures         int           `json:"failures"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Cost             float64       `json:"cost_usd"`
	Latency          time.Duration `json:"latency"`
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// TokenTracker is an in-memory llm Recorder keyed by role.
type TokenTracker struct {
	mu     sync.Mutex
	byRole map[string]*Usage
}

var _ llmmetrics.Recorder = (*TokenTracker)(nil)

// NewTokenTracker returns an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{byRole: make(map[string]*Usage)}
}

// ObserveRequest implements the llm metrics Recorder.
func (t *TokenTracker) ObserveRequest(
	model, role string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	_ string,
	duration time.Duration,
) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.byRole[role]
	if !ok {
		u = &Usage{Role: role}
		t.byRole[role] = u
	}
	u.Model = model
	u.Requests++
	if !success {
		u.Failures++
	}
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.Cost += cost
	u.Latency += duration
}

// Usage returns per-role usage, pipeline roles first in pipeline order.
func (t *TokenTracker) Usage() []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	order := make(map[string]int)
	for i, r := range config.Roles() {
		order[string(r)] = i
	}
	out := make([]Usage, 0, len(t.byRole))
	for _, u := range t.byRole {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b Usage) int {
		ia, oka := order[a.Role]
		ib, okb := order[b.Role]
		switch {
		case oka && okb:
			return ia - ib
		case oka:
			return -1
		case okb:
			return 1
		}
		if a.Role < b.Role {
			return -1
		}
		if a.Role > b.Role {
			return 1
		}
		return 0
	})
	return out
}

// Total sums usage across roles.
func (t *TokenTracker) Total() Usage {
	total := Usage{Role: "total"}
	for _, u := range t.Usage() {
		total.Requests += u.Requests
		total.Failures += u.Failures
		total.PromptTokens += u.PromptTokens
		total.CompletionTokens += u.CompletionTokens
		total.Cost += u.Cost
		total.Latency += u.Latency
	}
	return total
}

// TableHeaders and Rows feed logx.Table.
var TableHeaders = []string{"Role", "Model", "Requests", "Prompt", "Completion", "Cost (USD)"}

// Rows renders usage as table rows with a trailing total row.
func (t *TokenTracker) Rows() [][]string {
	usage := t.Usage()
	rows := make([][]string, 0, len(usage)+1)
	for _, u := range usage {
		rows = append(rows, row(u))
	}
	return append(rows, row(t.Total()))
}

func row(u Usage) []string {
	requests := fmt.Sprintf("%d", u.Requests)
	if u.Failures > 0 {
		requests = fmt.Sprintf("%d (%d failed)", u.Requests, u.Failures)
	}
	return []string{
		u.Role,
		u.Model,
		requests,
		fmt.Sprintf("%d", u.PromptTokens),
		fmt.Sprintf("%d", u.CompletionTokens),
		fmt.Sprintf("$%.4f", u.Cost),
	}
}
