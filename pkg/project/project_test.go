package project

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValidate(t *testing.T) {
	valid := Plan{
		Name:      "todo",
		Techstack: "python",
		Files:     []File{{Path: "main.py", Purpose: "entry"}},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mod  func(p *Plan)
	}{
		{"missing name", func(p *Plan) { p.Name = " " }},
		{"missing techstack", func(p *Plan) { p.Techstack = "" }},
		{"empty path", func(p *Plan) { p.Files = append(p.Files, File{Purpose: "x"}) }},
		{"duplicate path", func(p *Plan) { p.Files = append(p.Files, File{Path: "main.py"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.Files = append([]File(nil), valid.Files...)
			tt.mod(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestPlanFilePaths(t *testing.T) {
	p := &Plan{Files: []File{{Path: "b.py"}, {Path: "a.py"}}}
	assert.Equal(t, []string{"b.py", "a.py"}, p.FilePaths())

	var none *Plan
	assert.Empty(t, none.FilePaths())
}

func TestPlanSchemaRequiresFiles(t *testing.T) {
	s := Plan{}.Schema()
	assert.Equal(t, "object", s.Type)
	assert.Contains(t, s.Required, "files")
	files := s.Properties["files"]
	require.NotNil(t, files.Items)
	assert.ElementsMatch(t, []string{"path", "purpose"}, files.Items.Required)
}

func TestTaskNormalizeDefaults(t *testing.T) {
	var tp TaskPlan
	require.NoError(t, json.Unmarshal([]byte(`{"implementation_steps":[
		{"filepath":"a.py","task_description":"do a"},
		{"filepath":"b.py","task_description":"do b","priority":3,"estimated_complexity":" HIGH "}
	]}`), &tp))
	tp.Normalize()

	require.Len(t, tp.ImplementationSteps, 2)
	assert.Equal(t, DefaultPriority, tp.ImplementationSteps[0].Priority)
	assert.Equal(t, ComplexityMedium, tp.ImplementationSteps[0].EstimatedComplexity)
	assert.Equal(t, 3, tp.ImplementationSteps[1].Priority)
	assert.Equal(t, ComplexityHigh, tp.ImplementationSteps[1].EstimatedComplexity)
	assert.NoError(t, tp.Validate())
}

func TestTaskPlanValidate(t *testing.T) {
	bad := TaskPlan{ImplementationSteps: []ImplementationTask{
		{Filepath: "a.py", TaskDescription: "x", EstimatedComplexity: "huge"},
		{TaskDescription: "no path"},
	}}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implementation_steps[0]")
	assert.Contains(t, err.Error(), "implementation_steps[1]")

	assert.NoError(t, TaskPlan{}.Validate(), "an empty task plan is valid")
}

func TestTaskPlanBackReferenceNotSerialized(t *testing.T) {
	tp := TaskPlan{Plan: &Plan{Name: "secret"}}
	data, err := json.Marshal(tp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestCoderStateAdvance(t *testing.T) {
	tp := &TaskPlan{ImplementationSteps: []ImplementationTask{
		{Filepath: "a", TaskDescription: "a"},
		{Filepath: "b", TaskDescription: "b"},
	}}
	s0 := NewCoderState(tp)
	task, ok := s0.Current()
	require.True(t, ok)
	assert.Equal(t, "a", task.Filepath)

	s1 := s0.Advance(TaskResult{Index: 0, Filepath: "a", Status: TaskFailed, Error: "boom"}, "old")
	assert.Equal(t, 0, s0.CurrentStepIdx, "Advance must not mutate the receiver")
	assert.Empty(t, s0.TaskResults)
	assert.Equal(t, 1, s1.CurrentStepIdx)
	assert.Equal(t, "old", s1.CurrentFileContent)

	s2 := s1.Advance(TaskResult{Index: 1, Filepath: "b", Status: TaskSucceeded}, "")
	assert.True(t, s2.Done())
	_, ok = s2.Current()
	assert.False(t, ok)

	succeeded, failed := s2.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, map[string]bool{"a": true}, s2.FailedFiles())
}

func TestFailedFilesUsesLatestAttempt(t *testing.T) {
	s := &CoderState{TaskResults: []TaskResult{
		{Filepath: "a", Status: TaskFailed},
		{Filepath: "a", Status: TaskSucceeded},
		{Filepath: "b", Status: TaskFailed},
	}}
	assert.Equal(t, map[string]bool{"b": true}, s.FailedFiles())
}

func TestEmptyTaskPlanIsDone(t *testing.T) {
	assert.True(t, NewCoderState(&TaskPlan{}).Done())
	assert.True(t, NewCoderState(nil).Done())
}

func TestCodeReviewValidate(t *testing.T) {
	assert.NoError(t, CodeReviewResult{Filepath: "a.py", QualityScore: 100}.Validate())
	assert.NoError(t, CodeReviewResult{Filepath: "a.py", QualityScore: 0}.Validate())
	assert.Error(t, CodeReviewResult{Filepath: "a.py", QualityScore: 101}.Validate())
	assert.Error(t, CodeReviewResult{Filepath: "a.py", QualityScore: -1}.Validate())
	assert.Error(t, CodeReviewResult{QualityScore: 50}.Validate())

	score := CodeReviewResult{}.Schema().Properties["quality_score"]
	require.NotNil(t, score.Maximum)
	assert.InDelta(t, 100, *score.Maximum, 0)
}

func TestTestPlanSource(t *testing.T) {
	tp := TestPlan{
		Filepath:      "calc.py",
		TestFramework: "pytest",
		TestCases: []TestCase{
			{Name: "add", Description: "adds", Code: "def test_add():\n    assert add(1, 2) == 3\n"},
			{Name: "sub", Code: "def test_sub():\n    assert sub(2, 1) == 1"},
		},
	}
	require.NoError(t, tp.Validate())
	assert.Equal(t, "# Tests for calc.py (pytest)\n\n"+
		"# add\n# adds\ndef test_add():\n    assert add(1, 2) == 3\n\n"+
		"# sub\ndef test_sub():\n    assert sub(2, 1) == 1\n", tp.Source("#"))

	assert.Error(t, TestPlan{Filepath: "x", TestFramework: "jest"}.Validate())
	assert.Error(t, TestPlan{Filepath: "x", TestCases: []TestCase{{Name: "empty"}}}.Validate())
}

func TestMetadataMergeIsAdditive(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMetadata("demo", created)
	m = m.Merge(Metadata{GitInitialized: true, FilesCreated: []string{"b.py", "a.py"}, TotalLines: 20})

	m = m.Merge(Metadata{
		ProjectName:    "other",
		CreatedAt:      created.Add(time.Hour),
		GitInitialized: false,
		FilesCreated:   []string{"a.py"},
		TotalLines:     5,
	})

	assert.Equal(t, "demo", m.ProjectName)
	assert.Equal(t, created, m.CreatedAt)
	assert.True(t, m.GitInitialized, "git_initialized never reverts")
	assert.Equal(t, []string{"a.py", "b.py"}, m.FilesCreated)
	assert.Equal(t, 20, m.TotalLines)

	m = m.Merge(Metadata{FilesCreated: []string{"c.py"}, PackagesInstalled: []string{"flask"}, TestsGenerated: true})
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, m.FilesCreated)
	assert.Equal(t, []string{"flask"}, m.PackagesInstalled)
	assert.True(t, m.TestsGenerated)
}
