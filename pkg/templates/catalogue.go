package templates

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"projectgen/pkg/project"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// ProjectTemplate pre-seeds a run with a known project shape.
type ProjectTemplate struct {
	ID               string         `yaml:"-"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	Techstack        string         `yaml:"techstack"`
	Features         []string       `yaml:"features"`
	Files            []project.File `yaml:"files"`
	RequiredPackages []string       `yaml:"required_packages"`
	EnableDocker     bool           `yaml:"enable_docker"`
	EnableCICD       bool           `yaml:"enable_ci_cd"`
}

//nolint:gochecknoglobals // parsed once from the embedded catalogue
var (
	catalogueOnce sync.Once
	catalogue     map[string]ProjectTemplate
	catalogueErr  error
)

func load() (map[string]ProjectTemplate, error) {
	catalogueOnce.Do(func() {
		catalogue, catalogueErr = ParseCatalogue(catalogueYAML)
	})
	return catalogue, catalogueErr
}

// ParseCatalogue decodes a YAML catalogue keyed by template id.
func ParseCatalogue(data []byte) (map[string]ProjectTemplate, error) {
	var raw map[string]ProjectTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse template catalogue: %w", err)
	}
	for id, t := range raw {
		if t.Name == "" || t.Techstack == "" {
			return nil, fmt.Errorf("template %s: name and techstack are required", id)
		}
		t.ID = id
		raw[id] = t
	}
	return raw, nil
}

// List returns every template sorted by id.
func List() ([]ProjectTemplate, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]ProjectTemplate, 0, len(all))
	for _, t := range all {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the template with id.
func Get(id string) (ProjectTemplate, error) {
	all, err := load()
	if err != nil {
		return ProjectTemplate{}, err
	}
	t, ok := all[id]
	if !ok {
		return ProjectTemplate{}, fmt.Errorf("unknown template %q", id)
	}
	return t, nil
}

// Prompt builds the planner request for this template, appending the user's
// own requirements when given.
func (t ProjectTemplate) Prompt(additional string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s with the following specifications:\n\n", t.Name)
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Tech Stack: %s\n", t.Techstack)
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(t.Features, ", "))
	if len(t.Files) > 0 {
		b.WriteString("Suggested files:\n")
		for _, f := range t.Files {
			fmt.Fprintf(&b, "- %s: %s\n", f.Path, f.Purpose)
		}
	}
	if len(t.RequiredPackages) > 0 {
		fmt.Fprintf(&b, "Packages: %s\n", strings.Join(t.RequiredPackages, ", "))
	}
	fmt.Fprintf(&b, "Docker: %t\nCI/CD: %t\n", t.EnableDocker, t.EnableCICD)
	if strings.TrimSpace(additional) == "" {
		additional = "None"
	}
	fmt.Fprintf(&b, "\nUser additional requirements: %s\n", additional)
	return b.String()
}
