package scaffold

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDetectStack(t *testing.T) {
	tests := []struct {
		techstack string
		want      Stack
	}{
		{"Python, FastAPI", StackPython},
		{"React + Node.js", StackReact},
		{"Node.js/Express", StackNode},
		{"TypeScript", StackNode},
		{"Rust", StackUnknown},
	}
	for _, tt := range tests {
		if got := DetectStack(tt.techstack); got != tt.want {
			t.Errorf("DetectStack(%q) = %q, want %q", tt.techstack, got, tt.want)
		}
	}
}

func TestManifestSelection(t *testing.T) {
	if !WantsRequirements("python flask") || WantsRequirements("go") {
		t.Error("requirements detection wrong")
	}
	if !WantsPackageJSON("Vue 3") || WantsPackageJSON("python") {
		t.Error("package.json detection wrong")
	}
}

func TestRequirementsTxt(t *testing.T) {
	got := RequirementsTxt([]string{"requests", " flask ", "requests", ""})
	if got != "flask\nrequests\n" {
		t.Errorf("unexpected requirements %q", got)
	}
	if RequirementsTxt(nil) != "" {
		t.Error("expected empty output for no packages")
	}
}

func TestPackageJSON(t *testing.T) {
	out, err := PackageJSON("My Todo App", "todos", []string{"express", "@types/node@20.1.0"})
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Name         string            `json:"name"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.Name != "my-todo-app" {
		t.Errorf("name = %q", doc.Name)
	}
	if doc.Dependencies["express"] != "latest" || doc.Dependencies["@types/node"] != "20.1.0" {
		t.Errorf("unexpected dependencies %v", doc.Dependencies)
	}
}

func TestDockerVariants(t *testing.T) {
	py, err := Dockerfile("api", "python")
	if err != nil || !strings.Contains(py, "FROM python") || !strings.Contains(py, "main.py") {
		t.Errorf("python dockerfile: %v\n%s", err, py)
	}
	react, err := Dockerfile("web", "React")
	if err != nil || !strings.Contains(react, "nginx") {
		t.Errorf("react dockerfile: %v\n%s", err, react)
	}
	compose, err := DockerCompose("Web App", "node")
	if err != nil || !strings.Contains(compose, "web-app:") || !strings.Contains(compose, "3000:3000") {
		t.Errorf("compose: %v\n%s", err, compose)
	}
}

func TestCIWorkflow(t *testing.T) {
	if !strings.Contains(CIWorkflow("python"), "pytest") {
		t.Error("python CI should run pytest")
	}
	if !strings.Contains(CIWorkflow("react"), "npm test") {
		t.Error("react CI should run npm test")
	}
}
