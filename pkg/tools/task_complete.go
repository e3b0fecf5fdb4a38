package tools

import "context"

//nolint:gochecknoinits // tools self-register
func init() {
	Register(ToolTaskComplete, "Signal that the current task is finished", func(_ AgentContext) (Tool, error) {
		return &TaskCompleteTool{}, nil
	})
}

// TaskCompleteTool ends a tool loop. Its ProcessEffect carries the model's summary.
type TaskCompleteTool struct{}

func (t *TaskCompleteTool) Name() string { return ToolTaskComplete }

func (t *TaskCompleteTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolTaskComplete,
		Description: "Call this exactly once when the task is fully implemented and all files are written. " +
			"No other tool calls are processed after it.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"summary": {Type: "string", Description: "One or two sentences describing what was done"},
			},
			Required: []string{"summary"},
		},
	}
}

func (t *TaskCompleteTool) PromptDocumentation() string {
	return `- **task_complete** - Finish the task
  - Parameters: summary (string, REQUIRED)
  - Call only after every file for the task has been written`
}

func (t *TaskCompleteTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	summary := optionalString(args, "summary", "task complete")
	return &ExecResult{
		Content:       "Task marked complete.",
		ProcessEffect: &ProcessEffect{Signal: SignalTaskComplete, Data: summary},
	}, nil
}
