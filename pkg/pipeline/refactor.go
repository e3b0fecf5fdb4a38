package pipeline

import (
	"context"
	"fmt"
	"time"

	"projectgen/pkg/agent/llm"
	"projectgen/pkg/coder"
	"projectgen/pkg/templates"
)

// RefactorRequest names one existing file of a generated project.
type RefactorRequest struct {
	ProjectName  string
	Filepath     string
	Instructions string
	// Issues are usually the reviewer's findings for the file.
	Issues []string
}

// Refactor runs the coding sub-agent against a single existing file, inside
// the same sandbox and with the same tools as the coding stage.
func (e *Engine) Refactor(ctx context.Context, req RefactorRequest) (coder.Result, error) {
	gw := e.Gateway(req.ProjectName)
	if _, err := gw.Root(); err != nil {
		return coder.Result{}, err
	}
	code, exists, err := gw.ReadFile(req.Filepath)
	if err != nil {
		return coder.Result{}, err
	}
	if !exists {
		return coder.Result{}, fmt.Errorf("%s does not exist in project %s", req.Filepath, req.ProjectName)
	}

	log := e.logger.WithComponent("refactor")
	c, provider := e.NewCoder(gw, func(call llm.ToolCall, res llm.ToolResult, d time.Duration) {
		log.Debug("%s (error=%t) in %s", call.Name, res.IsError, d.Round(time.Millisecond))
	})

	system, err := e.renderer.Render(templates.CoderSystemTemplate, &templates.TemplateData{
		ProjectName:       req.ProjectName,
		ToolDocumentation: provider.GenerateToolDocumentation(),
	})
	if err != nil {
		return coder.Result{}, err
	}
	user, err := e.renderer.Render(templates.RefactorTemplate, &templates.TemplateData{
		Filepath:     req.Filepath,
		Language:     LanguageFor(req.Filepath),
		Code:         code,
		Issues:       req.Issues,
		Instructions: req.Instructions,
	})
	if err != nil {
		return coder.Result{}, err
	}

	log.Info("🛠  Refactoring %s/%s", req.ProjectName, req.Filepath)
	return c.Run(ctx, system, user)
}
