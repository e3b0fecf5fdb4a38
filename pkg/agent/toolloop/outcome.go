package toolloop

import (
	"fmt"

	"projectgen/pkg/agent/llm"
)

// OutcomeKind categorizes the result of a toolloop execution.
type OutcomeKind int

const (
	// OutcomeSuccess indicates a tool returned a ProcessEffect; Signal names it.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeNoToolTwice indicates the model answered without tools twice in a row.
	OutcomeNoToolTwice

	// OutcomeMaxIterations indicates MaxIterations was reached without a signal.
	OutcomeMaxIterations

	// OutcomeLLMError indicates the LLM client failed. Err holds the cause.
	OutcomeLLMError

	// OutcomeCanceled indicates the context was cancelled mid-loop.
	OutcomeCanceled
)

// String returns human-readable name for OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeNoToolTwice:
		return "NoToolTwice"
	case OutcomeMaxIterations:
		return "MaxIterations"
	case OutcomeLLMError:
		return "LLMError"
	case OutcomeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Outcome is the result of one loop run.
//
//nolint:govet // Field order optimized for readability over memory alignment
type Outcome struct {
	Kind OutcomeKind

	// Signal and EffectData come from the ProcessEffect that ended the loop.
	Signal     string
	EffectData any

	// Err is non-nil for every kind except OutcomeSuccess.
	Err error

	// Iteration is the 1-indexed iteration at which the loop stopped.
	Iteration int

	// ToolCalls counts executed tool calls, including failed ones.
	ToolCalls int

	// Messages is the full conversation, for debugging and checkpoints.
	Messages []llm.CompletionMessage
}

// OK reports whether the loop ended on a tool signal.
func (o *Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}
