// Package metrics provides metrics recording for LLM client operations.
package metrics

import "time"

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request. role is the
	// pipeline role that issued it (planner, coder, ...).
	ObserveRequest(
		model, role string,
		promptTokens, completionTokens int,
		cost float64,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ float64, _ bool, _ string, _ time.Duration) {}

// MultiRecorder fans every observation out to several recorders.
type MultiRecorder []Recorder

// Multi combines recorders, dropping nils.
func Multi(recorders ...Recorder) Recorder {
	var out MultiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}

// ObserveRequest forwards to every recorder.
func (m MultiRecorder) ObserveRequest(
	model, role string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	for _, r := range m {
		r.ObserveRequest(model, role, promptTokens, completionTokens, cost, success, errorType, duration)
	}
}
