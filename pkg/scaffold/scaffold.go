// Package scaffold renders the boilerplate files a finished project gets:
// .gitignore, dependency manifests, Docker files and a CI workflow.
package scaffold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Stack is the coarse runtime family derived from a plan's techstack string.
type Stack string

const (
	StackPython  Stack = "python"
	StackNode    Stack = "node"
	StackReact   Stack = "react"
	StackUnknown Stack = ""
)

// DetectStack maps a free-text techstack to a Stack. React wins over plain node.
func DetectStack(techstack string) Stack {
	ts := strings.ToLower(techstack)
	switch {
	case strings.Contains(ts, "react") || strings.Contains(ts, "vue"):
		return StackReact
	case strings.Contains(ts, "python"):
		return StackPython
	case strings.Contains(ts, "javascript") || strings.Contains(ts, "node") || strings.Contains(ts, "typescript"):
		return StackNode
	default:
		return StackUnknown
	}
}

// WantsRequirements reports whether a techstack gets a requirements.txt.
func WantsRequirements(techstack string) bool {
	return strings.Contains(strings.ToLower(techstack), "python")
}

// WantsPackageJSON reports whether a techstack gets a package.json.
func WantsPackageJSON(techstack string) bool {
	ts := strings.ToLower(techstack)
	for _, kw := range []string{"javascript", "node", "react", "vue"} {
		if strings.Contains(ts, kw) {
			return true
		}
	}
	return false
}

// Gitignore is the default ignore file written by git init.
const Gitignore = `# Dependencies
node_modules/
venv/
.venv/
__pycache__/
*.pyc

# Build output
dist/
build/
*.egg-info/
coverage/

# Environment
.env
.env.local

# Editors
.vscode/
.idea/
.DS_Store
`

// RequirementsTxt renders one package per line, deduplicated and sorted.
func RequirementsTxt(packages []string) string {
	pkgs := normalize(packages)
	if len(pkgs) == 0 {
		return ""
	}
	return strings.Join(pkgs, "\n") + "\n"
}

type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description,omitempty"`
	Main         string            `json:"main"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

// PackageJSON renders a minimal package.json with every package pinned to "latest".
// Entries of the form name@version keep their version.
func PackageJSON(name, description string, packages []string) (string, error) {
	deps := make(map[string]string)
	for _, p := range normalize(packages) {
		pkg, version := p, "latest"
		// Scoped packages start with '@'; split on the last '@' only after the first char.
		if i := strings.LastIndex(p, "@"); i > 0 {
			pkg, version = p[:i], p[i+1:]
		}
		deps[pkg] = version
	}
	doc := packageJSON{
		Name:        slug(name),
		Version:     "1.0.0",
		Description: description,
		Main:        "index.js",
		Scripts: map[string]string{
			"start": "node index.js",
			"test":  "jest",
		},
		Dependencies: deps,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal package.json: %w", err)
	}
	return string(raw) + "\n", nil
}

var dockerfiles = map[Stack]*template.Template{
	StackPython: template.Must(template.New("python").Parse(`FROM python:3.12-slim

WORKDIR /app

COPY requirements.txt* ./
RUN if [ -f requirements.txt ]; then pip install --no-cache-dir -r requirements.txt; fi

COPY . .

EXPOSE {{.Port}}
CMD ["python", "{{.Entrypoint}}"]
`)),
	StackNode: template.Must(template.New("node").Parse(`FROM node:20-alpine

WORKDIR /app

COPY package*.json ./
RUN npm install --omit=dev

COPY . .

EXPOSE {{.Port}}
CMD ["node", "{{.Entrypoint}}"]
`)),
	StackReact: template.Must(template.New("react").Parse(`FROM node:20-alpine AS build

WORKDIR /app
COPY package*.json ./
RUN npm install
COPY . .
RUN npm run build

FROM nginx:alpine
COPY --from=build /app/build /usr/share/nginx/html
EXPOSE {{.Port}}
CMD ["nginx", "-g", "daemon off;"]
`)),
}

type dockerParams struct {
	Name       string
	Entrypoint string
	Port       int
}

func paramsFor(name string, stack Stack) dockerParams {
	switch stack {
	case StackPython:
		return dockerParams{Name: slug(name), Entrypoint: "main.py", Port: 8000}
	case StackReact:
		return dockerParams{Name: slug(name), Entrypoint: "", Port: 80}
	default:
		return dockerParams{Name: slug(name), Entrypoint: "index.js", Port: 3000}
	}
}

// Dockerfile renders a Dockerfile for the techstack. Unknown stacks fall back to the python image.
func Dockerfile(name, techstack string) (string, error) {
	stack := DetectStack(techstack)
	if stack == StackUnknown {
		stack = StackPython
	}
	return render(dockerfiles[stack], paramsFor(name, stack))
}

var composeTemplate = template.Must(template.New("compose").Parse(`services:
  {{.Name}}:
    build: .
    ports:
      - "{{.Port}}:{{.Port}}"
    restart: unless-stopped
`))

// DockerCompose renders a single-service docker-compose.yml.
func DockerCompose(name, techstack string) (string, error) {
	stack := DetectStack(techstack)
	if stack == StackUnknown {
		stack = StackPython
	}
	return render(composeTemplate, paramsFor(name, stack))
}

var ciTemplates = map[Stack]string{
	StackPython: `      - uses: actions/setup-python@v5
        with:
          python-version: "3.12"
      - run: pip install -r requirements.txt pytest
      - run: pytest
`,
	StackNode: `      - uses: actions/setup-node@v4
        with:
          node-version: "20"
      - run: npm install
      - run: npm test
`,
}

// CIWorkflow renders .github/workflows/ci.yml.
func CIWorkflow(techstack string) string {
	stack := DetectStack(techstack)
	steps, ok := ciTemplates[stack]
	if stack == StackReact {
		steps = ciTemplates[StackNode]
		ok = true
	}
	if !ok {
		steps = ciTemplates[StackPython]
	}
	return `name: CI

on:
  push:
    branches: [main]
  pull_request:

jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
` + steps
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func normalize(packages []string) []string {
	seen := make(map[string]struct{}, len(packages))
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func slug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "app"
	}
	return s
}
