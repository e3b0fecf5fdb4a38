// Package pipeline sequences the LLM-backed stages that turn a prompt into a
// generated project: plan, architect, a coding loop over the task list, then
// optional review, test generation and finalization.
//
// Stages never mutate the running State. Each returns an Update, and Reduce
// merges it into a new State, enforcing that stage outputs are write-once and
// that the coding cursor only moves forward.
package pipeline

import (
	"errors"
	"fmt"

	"projectgen/pkg/project"
)

// ErrWriteOnce is returned when an Update tries to replace a stage output.
var ErrWriteOnce = errors.New("stage output is write-once")

// State is the accumulated record of one run.
type State struct {
	RunID       string `json:"run_id"`
	Prompt      string `json:"prompt"`
	ProjectName string `json:"project_name"`
	Status      Status `json:"status"`

	Plan     *project.Plan       `json:"plan,omitempty"`
	TaskPlan *project.TaskPlan   `json:"task_plan,omitempty"`
	Coder    *project.CoderState `json:"coder_state,omitempty"`

	ReviewResults []project.CodeReviewResult `json:"review_results"`
	TestPlans     []project.TestPlan         `json:"test_plans"`
	Metadata      project.Metadata           `json:"metadata"`

	// Steps counts stage invocations so far.
	Steps int    `json:"steps"`
	Error string `json:"error,omitempty"`
	// FailedAt is the status that was running when the run failed.
	FailedAt Status `json:"failed_at,omitempty"`
}

// Update is a stage's partial result. Zero fields leave State unchanged.
//
//nolint:govet // fieldalignment: grouped like State
type Update struct {
	// Status is the next status and is required.
	Status Status

	Plan     *project.Plan
	TaskPlan *project.TaskPlan
	Coder    *project.CoderState

	// ReviewResults and TestPlans are appended.
	ReviewResults []project.CodeReviewResult
	TestPlans     []project.TestPlan

	// Metadata is merged additively.
	Metadata *project.Metadata
}

// Reduce returns s with u applied. s is not modified. It rejects illegal
// transitions, replacement of Plan or TaskPlan, a coding cursor that moves
// backwards, and task results that are rewritten instead of appended.
func Reduce(s State, u Update) (State, error) {
	if err := checkTransition(s.Status, u.Status); err != nil {
		return s, err
	}
	next := s
	next.Status = u.Status
	next.Steps = s.Steps + 1

	if u.Plan != nil {
		if s.Plan != nil {
			return s, fmt.Errorf("%w: plan", ErrWriteOnce)
		}
		next.Plan = u.Plan
	}
	if u.TaskPlan != nil {
		if s.TaskPlan != nil {
			return s, fmt.Errorf("%w: task plan", ErrWriteOnce)
		}
		next.TaskPlan = u.TaskPlan
	}
	if u.Coder != nil {
		if err := checkCoderAdvance(s.Coder, u.Coder); err != nil {
			return s, err
		}
		next.Coder = u.Coder
	}

	next.ReviewResults = appendCopy(s.ReviewResults, u.ReviewResults)
	next.TestPlans = appendCopy(s.TestPlans, u.TestPlans)
	if u.Metadata != nil {
		next.Metadata = s.Metadata.Merge(*u.Metadata)
	}
	return next, nil
}

func checkCoderAdvance(prev, cur *project.CoderState) error {
	if prev == nil {
		return nil
	}
	if cur.CurrentStepIdx < prev.CurrentStepIdx {
		return fmt.Errorf("%w: coding cursor moved back from %d to %d", ErrWriteOnce, prev.CurrentStepIdx, cur.CurrentStepIdx)
	}
	if len(cur.TaskResults) < len(prev.TaskResults) {
		return fmt.Errorf("%w: task results shrank from %d to %d", ErrWriteOnce, len(prev.TaskResults), len(cur.TaskResults))
	}
	for i := range prev.TaskResults {
		if cur.TaskResults[i] != prev.TaskResults[i] {
			return fmt.Errorf("%w: task result %d rewritten", ErrWriteOnce, i)
		}
	}
	return nil
}

// appendCopy never returns nil, so empty lists serialize as [].
func appendCopy[T any](base, extra []T) []T {
	out := make([]T, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Fail returns s moved to ERROR with err recorded. Any non-terminal status may fail.
func (s State) Fail(err error) State {
	next := s
	next.Status = StatusError
	if !s.Status.IsTerminal() {
		next.FailedAt = s.Status
	}
	if err != nil {
		next.Error = err.Error()
	}
	return next
}

// NewState returns a PLANNING state with empty result lists.
func NewState(runID, prompt, projectName string, meta project.Metadata) State {
	return State{
		RunID:         runID,
		Prompt:        prompt,
		ProjectName:   projectName,
		Status:        StatusPlanning,
		ReviewResults: []project.CodeReviewResult{},
		TestPlans:     []project.TestPlan{},
		Metadata:      meta,
	}
}

// FailedTasks returns how many coding tasks failed.
func (s *State) FailedTasks() int {
	_, failed := s.Coder.Counts()
	return failed
}
