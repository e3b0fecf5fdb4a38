package project

import "time"

// TaskStatus is the outcome of one coding task.
type TaskStatus string

const (
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskResult records how one task went. Results are appended, never rewritten.
type TaskResult struct {
	Index     int           `json:"index"`
	Filepath  string        `json:"filepath"`
	Status    TaskStatus    `json:"status"`
	Error     string        `json:"error,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	ToolCalls int           `json:"tool_calls"`
	Duration  time.Duration `json:"duration"`
}

// CoderState is the coding stage's cursor over the task plan.
type CoderState struct {
	TaskPlan       *TaskPlan `json:"task_plan"`
	CurrentStepIdx int       `json:"current_step_idx"`
	// CurrentFileContent is scratch: the content read before the last task ran.
	CurrentFileContent string       `json:"current_file_content,omitempty"`
	TaskResults        []TaskResult `json:"task_results,omitempty"`
}

// NewCoderState starts a cursor at the first step of tp.
func NewCoderState(tp *TaskPlan) *CoderState {
	return &CoderState{TaskPlan: tp}
}

// Done reports whether the cursor has passed the last step.
func (s *CoderState) Done() bool {
	return s.CurrentStepIdx >= s.TaskPlan.Len()
}

// Current returns the task under the cursor.
func (s *CoderState) Current() (ImplementationTask, bool) {
	if s.Done() {
		return ImplementationTask{}, false
	}
	return s.TaskPlan.ImplementationSteps[s.CurrentStepIdx], true
}

// Advance returns a copy with the cursor moved past the current step and
// result appended. The receiver is not modified.
func (s *CoderState) Advance(result TaskResult, fileContent string) *CoderState {
	next := &CoderState{
		TaskPlan:           s.TaskPlan,
		CurrentStepIdx:     s.CurrentStepIdx + 1,
		CurrentFileContent: fileContent,
		TaskResults:        make([]TaskResult, 0, len(s.TaskResults)+1),
	}
	next.TaskResults = append(next.TaskResults, s.TaskResults...)
	next.TaskResults = append(next.TaskResults, result)
	return next
}

// FailedFiles returns the paths whose most recent task failed.
func (s *CoderState) FailedFiles() map[string]bool {
	failed := make(map[string]bool)
	if s == nil {
		return failed
	}
	for _, r := range s.TaskResults {
		failed[r.Filepath] = r.Status == TaskFailed
	}
	for path, f := range failed {
		if !f {
			delete(failed, path)
		}
	}
	return failed
}

// Counts returns how many tasks succeeded and failed.
func (s *CoderState) Counts() (succeeded, failed int) {
	if s == nil {
		return 0, 0
	}
	for _, r := range s.TaskResults {
		if r.Status == TaskFailed {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
