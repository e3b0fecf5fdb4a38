package project

import (
	"errors"
	"fmt"
	"strings"

	"projectgen/pkg/tools"
)

// CodeReviewResult is the reviewer's verdict on one file.
type CodeReviewResult struct {
	Filepath     string   `json:"filepath"`
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
	QualityScore int      `json:"quality_score"`
	Approved     bool     `json:"approved"`
}

func (CodeReviewResult) ShapeName() string { return "code_review" }

// Schema describes CodeReviewResult for the submit_code_review tool.
func (CodeReviewResult) Schema() tools.InputSchema {
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"filepath": {Type: "string", Description: "Path of the file being reviewed"},
			"issues": {
				Type:        "array",
				Description: "Specific issues found in the code",
				Items:       &tools.Property{Type: "string"},
			},
			"suggestions": {
				Type:        "array",
				Description: "Actionable improvement suggestions",
				Items:       &tools.Property{Type: "string"},
			},
			"quality_score": {
				Type:        "integer",
				Description: "Quality score from 0 to 100",
				Minimum:     tools.Float(0),
				Maximum:     tools.Float(100),
			},
			"approved": {Type: "boolean", Description: "Whether the code is approved"},
		},
		Required: []string{"filepath", "quality_score", "approved"},
	}
}

// Validate enforces the score range.
func (r CodeReviewResult) Validate() error {
	if strings.TrimSpace(r.Filepath) == "" {
		return errors.New("filepath is required")
	}
	if r.QualityScore < 0 || r.QualityScore > 100 {
		return fmt.Errorf("quality_score %d outside [0, 100]", r.QualityScore)
	}
	return nil
}

// TestCase is one generated test.
type TestCase struct {
	Name        string `json:"test_name"`
	Description string `json:"description"`
	Code        string `json:"test_code"`
}

// TestPlan is the tester's output for one file.
type TestPlan struct {
	Filepath      string     `json:"filepath"`
	TestFramework string     `json:"test_framework"`
	TestCases     []TestCase `json:"test_cases"`
}

func (TestPlan) ShapeName() string { return "test_plan" }

// Schema describes TestPlan for the submit_test_plan tool.
func (TestPlan) Schema() tools.InputSchema {
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"filepath":       {Type: "string", Description: "The file being tested"},
			"test_framework": {Type: "string", Description: "Testing framework to use, e.g. pytest, jest"},
			"test_cases": {
				Type:        "array",
				Description: "Test cases",
				Items: &tools.Property{
					Type: "object",
					Properties: map[string]tools.Property{
						"test_name":   {Type: "string", Description: "Name of the test case"},
						"description": {Type: "string", Description: "What the test validates"},
						"test_code":   {Type: "string", Description: "Complete, runnable test code"},
					},
					Required: []string{"test_name", "test_code"},
				},
			},
		},
		Required: []string{"filepath", "test_framework", "test_cases"},
	}
}

// Validate requires at least one test case with code.
func (tp TestPlan) Validate() error {
	if strings.TrimSpace(tp.Filepath) == "" {
		return errors.New("filepath is required")
	}
	if len(tp.TestCases) == 0 {
		return errors.New("at least one test case is required")
	}
	for i, tc := range tp.TestCases {
		if strings.TrimSpace(tc.Code) == "" {
			return fmt.Errorf("test_cases[%d] (%s): test_code is required", i, tc.Name)
		}
	}
	return nil
}

// Source renders the test cases as one file body. Each case is headed by its
// name and description written as comments using comment.
func (tp *TestPlan) Source(comment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Tests for %s (%s)\n\n", comment, tp.Filepath, tp.TestFramework)
	for _, tc := range tp.TestCases {
		fmt.Fprintf(&b, "%s %s\n", comment, tc.Name)
		if tc.Description != "" {
			fmt.Fprintf(&b, "%s %s\n", comment, tc.Description)
		}
		b.WriteString(strings.TrimRight(tc.Code, "\n"))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
