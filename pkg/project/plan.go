// Package project holds the typed artifacts passed between pipeline stages:
// the plan, the task breakdown, per-task coding results, reviews, test plans
// and the metadata of the generated project.
package project

import (
	"errors"
	"fmt"
	"strings"

	"projectgen/pkg/tools"
)

// File is one file the plan intends to create.
type File struct {
	Path         string   `json:"path"`
	Purpose      string   `json:"purpose"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Plan is the planner's high-level description of the project.
type Plan struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Techstack        string   `json:"techstack"`
	Features         []string `json:"features"`
	Files            []File   `json:"files"`
	RequiredPackages []string `json:"required_packages,omitempty"`
	EnableDocker     bool     `json:"enable_docker"`
	EnableCICD       bool     `json:"enable_ci_cd"`
}

func (Plan) ShapeName() string { return "plan" }

// Schema describes Plan for the submit_plan tool.
func (Plan) Schema() tools.InputSchema {
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"name":        {Type: "string", Description: "The name of the app to be built"},
			"description": {Type: "string", Description: "A one-line description of the app"},
			"techstack":   {Type: "string", Description: "The tech stack, e.g. 'python', 'javascript', 'react', 'flask'"},
			"features": {
				Type:        "array",
				Description: "Features the app should have",
				Items:       &tools.Property{Type: "string"},
			},
			"files": {
				Type:        "array",
				Description: "Files to be created, each with a path and a purpose",
				Items:       &fileSchema,
			},
			"required_packages": {
				Type:        "array",
				Description: "Required packages or dependencies",
				Items:       &tools.Property{Type: "string"},
			},
			"enable_docker": {Type: "boolean", Description: "Whether to generate Docker configuration"},
			"enable_ci_cd":  {Type: "boolean", Description: "Whether to generate CI/CD configuration"},
		},
		Required: []string{"name", "description", "techstack", "features", "files"},
	}
}

//nolint:gochecknoglobals // shared schema fragment
var fileSchema = tools.Property{
	Type: "object",
	Properties: map[string]tools.Property{
		"path":    {Type: "string", Description: "Path of the file relative to the project root"},
		"purpose": {Type: "string", Description: "What the file is for, e.g. 'main application logic'"},
		"dependencies": {
			Type:        "array",
			Description: "Other files this file depends on",
			Items:       &tools.Property{Type: "string"},
		},
	},
	Required: []string{"path", "purpose"},
}

// Validate checks required fields and file paths.
func (p Plan) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(p.Techstack) == "" {
		errs = append(errs, errors.New("techstack is required"))
	}
	seen := make(map[string]struct{}, len(p.Files))
	for i, f := range p.Files {
		if strings.TrimSpace(f.Path) == "" {
			errs = append(errs, fmt.Errorf("files[%d]: path is required", i))
			continue
		}
		if _, dup := seen[f.Path]; dup {
			errs = append(errs, fmt.Errorf("files[%d]: duplicate path %q", i, f.Path))
		}
		seen[f.Path] = struct{}{}
	}
	return errors.Join(errs...)
}

// FilePaths returns the planned paths in order. A nil plan has none.
func (p *Plan) FilePaths() []string {
	if p == nil {
		return nil
	}
	paths := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Summary renders the plan as plain text for prompts.
func (p *Plan) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nDescription: %s\nTech stack: %s\n", p.Name, p.Description, p.Techstack)
	if len(p.Features) > 0 {
		b.WriteString("Features:\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(p.Files) > 0 {
		b.WriteString("Files:\n")
		for _, f := range p.Files {
			fmt.Fprintf(&b, "- %s: %s", f.Path, f.Purpose)
			if len(f.Dependencies) > 0 {
				fmt.Fprintf(&b, " (depends on %s)", strings.Join(f.Dependencies, ", "))
			}
			b.WriteString("\n")
		}
	}
	if len(p.RequiredPackages) > 0 {
		fmt.Fprintf(&b, "Required packages: %s\n", strings.Join(p.RequiredPackages, ", "))
	}
	fmt.Fprintf(&b, "Docker: %t\nCI/CD: %t\n", p.EnableDocker, p.EnableCICD)
	return b.String()
}
