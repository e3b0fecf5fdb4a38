// Package templates renders the stage prompts and holds the project template catalogue.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"projectgen/pkg/project"
)

//go:embed *.tpl.md
var templateFS embed.FS

// StateTemplate names one embedded prompt.
type StateTemplate string

const (
	PlannerTemplate     StateTemplate = "planner.tpl.md"
	ArchitectTemplate   StateTemplate = "architect.tpl.md"
	CoderSystemTemplate StateTemplate = "coder_system.tpl.md"
	CoderTaskTemplate   StateTemplate = "coder_task.tpl.md"
	ReviewerTemplate    StateTemplate = "reviewer.tpl.md"
	TesterTemplate      StateTemplate = "tester.tpl.md"
	// RefactorTemplate is the user message of the refactor command.
	RefactorTemplate StateTemplate = "refactor.tpl.md"
)

// TemplateData holds the data for template rendering. Each template reads
// only the fields it needs.
//
//nolint:govet // fieldalignment: grouped by template
type TemplateData struct {
	Prompt      string
	ProjectName string
	PlanSummary string

	// Coder
	Task              project.ImplementationTask
	Step              int
	TotalSteps        int
	ExistingContent   string
	ToolDocumentation string

	// Reviewer, tester, refactor
	Filepath     string
	Language     string
	Framework    string
	Code         string
	Issues       []string
	Instructions string
}

// Renderer handles template rendering for pipeline stages.
type Renderer struct {
	templates map[StateTemplate]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[StateTemplate]*template.Template)}

	names := []StateTemplate{
		PlannerTemplate,
		ArchitectTemplate,
		CoderSystemTemplate,
		CoderTaskTemplate,
		ReviewerTemplate,
		TesterTemplate,
		RefactorTemplate,
	}
	for _, name := range names {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// MustRenderer is NewRenderer for callers that cannot recover from a broken embed.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders the specified template with the given data.
func (r *Renderer) Render(name StateTemplate, data *TemplateData) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
