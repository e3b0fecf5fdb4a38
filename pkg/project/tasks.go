package project

import (
	"errors"
	"fmt"
	"strings"

	"projectgen/pkg/tools"
)

// Complexity is the architect's estimate for one task.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// DefaultPriority applies when the architect omits a priority.
const DefaultPriority = 1

// Valid reports whether c is one of the known levels.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	}
	return false
}

// ImplementationTask is one unit of work for the coder.
type ImplementationTask struct {
	Filepath            string     `json:"filepath"`
	TaskDescription     string     `json:"task_description"`
	Priority            int        `json:"priority,omitempty"`
	EstimatedComplexity Complexity `json:"estimated_complexity,omitempty"`
}

// Normalize fills defaults.
func (t *ImplementationTask) Normalize() {
	if t.Priority == 0 {
		t.Priority = DefaultPriority
	}
	t.EstimatedComplexity = Complexity(strings.ToLower(strings.TrimSpace(string(t.EstimatedComplexity))))
	if t.EstimatedComplexity == "" {
		t.EstimatedComplexity = ComplexityMedium
	}
}

// Validate checks one task.
func (t ImplementationTask) Validate() error {
	if strings.TrimSpace(t.Filepath) == "" {
		return errors.New("filepath is required")
	}
	if strings.TrimSpace(t.TaskDescription) == "" {
		return fmt.Errorf("%s: task_description is required", t.Filepath)
	}
	if t.EstimatedComplexity != "" && !t.EstimatedComplexity.Valid() {
		return fmt.Errorf("%s: estimated_complexity %q must be low, medium or high", t.Filepath, t.EstimatedComplexity)
	}
	return nil
}

// TaskPlan is the architect's ordered task list. Plan is attached by the
// architect stage after decoding and is never part of the model's answer.
type TaskPlan struct {
	ImplementationSteps []ImplementationTask `json:"implementation_steps"`
	Plan                *Plan                `json:"-"`
}

func (TaskPlan) ShapeName() string { return "task_plan" }

// Schema describes TaskPlan for the submit_task_plan tool.
func (TaskPlan) Schema() tools.InputSchema {
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"implementation_steps": {
				Type:        "array",
				Description: "Ordered implementation tasks; base and utility files first",
				Items: &tools.Property{
					Type: "object",
					Properties: map[string]tools.Property{
						"filepath":         {Type: "string", Description: "Path of the file to create or modify"},
						"task_description": {Type: "string", Description: "Detailed description of what to implement, including interfaces and integration details"},
						"priority":         {Type: "integer", Description: "Priority of the task, higher is more important", Minimum: tools.Float(0)},
						"estimated_complexity": {
							Type:        "string",
							Description: "Estimated complexity",
							Enum:        []string{string(ComplexityLow), string(ComplexityMedium), string(ComplexityHigh)},
						},
					},
					Required: []string{"filepath", "task_description"},
				},
			},
		},
		Required: []string{"implementation_steps"},
	}
}

// Normalize fills task defaults.
func (tp *TaskPlan) Normalize() {
	for i := range tp.ImplementationSteps {
		tp.ImplementationSteps[i].Normalize()
	}
}

// Validate checks every step.
func (tp TaskPlan) Validate() error {
	var errs []error
	for i := range tp.ImplementationSteps {
		if err := tp.ImplementationSteps[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("implementation_steps[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of steps.
func (tp *TaskPlan) Len() int {
	if tp == nil {
		return 0
	}
	return len(tp.ImplementationSteps)
}
