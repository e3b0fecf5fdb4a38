package project

import (
	"slices"
	"sort"
	"time"
)

// Metadata is the summary of a generated project. Fields only ever grow:
// flags flip from false to true and lists gain entries. Merge enforces this.
type Metadata struct {
	ProjectName       string    `json:"project_name"`
	CreatedAt         time.Time `json:"created_at"`
	FilesCreated      []string  `json:"files_created"`
	TotalLines        int       `json:"total_lines"`
	PackagesInstalled []string  `json:"packages_installed"`
	GitInitialized    bool      `json:"git_initialized"`
	DockerEnabled     bool      `json:"docker_enabled"`
	TestsGenerated    bool      `json:"tests_generated"`
}

// NewMetadata starts metadata for a project.
func NewMetadata(name string, now time.Time) Metadata {
	return Metadata{ProjectName: name, CreatedAt: now}
}

// Merge returns m augmented with update. Identity fields are kept from m once
// set, flags are OR-ed, lists are unioned and TotalLines never decreases.
func (m Metadata) Merge(update Metadata) Metadata {
	out := m
	if out.ProjectName == "" {
		out.ProjectName = update.ProjectName
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = update.CreatedAt
	}
	out.FilesCreated = union(m.FilesCreated, update.FilesCreated)
	out.PackagesInstalled = union(m.PackagesInstalled, update.PackagesInstalled)
	out.TotalLines = max(m.TotalLines, update.TotalLines)
	out.GitInitialized = m.GitInitialized || update.GitInitialized
	out.DockerEnabled = m.DockerEnabled || update.DockerEnabled
	out.TestsGenerated = m.TestsGenerated || update.TestsGenerated
	return out
}

// union keeps a's order and appends b's new entries sorted.
func union(a, b []string) []string {
	if len(b) == 0 {
		return slices.Clone(a)
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	var added []string
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			added = append(added, s)
		}
	}
	sort.Strings(added)
	return append(out, added...)
}
