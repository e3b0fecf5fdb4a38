// Package workspace confines generated-project file access to a single project root.
//
// Every path handed to a Gateway is resolved against <baseDir>/<projectName>; paths
// that would land outside that directory are rejected with a *PathEscapeError.
// Tool-facing methods (Read, Write, List) never return errors: failures are
// rendered as "ERROR: ..." strings so an LLM caller sees them as tool output.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrorPrefix marks a failed tool-facing result.
const ErrorPrefix = "ERROR: "

// WrotePrefix starts a successful Write result, followed by the absolute path.
const WrotePrefix = "WROTE:"

// DefaultMaxFileSize applies when no limit is configured.
const DefaultMaxFileSize int64 = 1024 * 1024

// ErrInvalidProjectName is returned for project names that are not a single path element.
var ErrInvalidProjectName = errors.New("invalid project name")

// ErrFileTooLarge is returned when content exceeds the configured limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// PathEscapeError reports a path that resolves outside the project root.
type PathEscapeError struct {
	Path string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("attempt to access path outside project root: %s (root %s)", e.Path, e.Root)
}

// IsPathEscape reports whether err wraps a *PathEscapeError.
func IsPathEscape(err error) bool {
	var pe *PathEscapeError
	return errors.As(err, &pe)
}

// Gateway is the sandboxed file API for one project.
type Gateway struct {
	baseDir     string
	project     string
	maxFileSize int64

	rootOnce sync.Once
	root     string
	rootErr  error

	writeMu sync.Mutex
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxFileSize caps reads and writes at n bytes.
func WithMaxFileSize(n int64) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxFileSize = n
		}
	}
}

// New returns a gateway rooted at baseDir/projectName. The root is created on first use.
func New(baseDir, projectName string, opts ...Option) *Gateway {
	g := &Gateway{
		baseDir:     baseDir,
		project:     projectName,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProjectName returns the project this gateway serves.
func (g *Gateway) ProjectName() string {
	return g.project
}

// ValidateProjectName rejects names that are empty or not a single path element.
func ValidateProjectName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
	}
	return nil
}

// Root returns the absolute project root, creating it if absent.
func (g *Gateway) Root() (string, error) {
	g.rootOnce.Do(func() {
		if err := ValidateProjectName(g.project); err != nil {
			g.rootErr = err
			return
		}
		abs, err := filepath.Abs(filepath.Join(g.baseDir, g.project))
		if err != nil {
			g.rootErr = fmt.Errorf("resolve project root: %w", err)
			return
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			g.rootErr = fmt.Errorf("create project root: %w", err)
			return
		}
		// Canonicalize so symlinked temp dirs compare equal below.
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		g.root = abs
	})
	return g.root, g.rootErr
}

// Resolve maps a project-relative path to an absolute path inside the root.
// Absolute inputs already inside the root are accepted as-is; other absolute
// inputs are treated as root-relative. Anything that normalizes outside the
// root, directly or through a symlink, yields *PathEscapeError.
func (g *Gateway) Resolve(rel string) (string, error) {
	root, err := g.Root()
	if err != nil {
		return "", err
	}

	var candidate string
	switch {
	case filepath.IsAbs(rel) && within(root, filepath.Clean(rel)):
		candidate = filepath.Clean(rel)
	default:
		trimmed := strings.TrimLeft(filepath.FromSlash(rel), `/\`)
		candidate = filepath.Clean(filepath.Join(root, trimmed))
	}

	if !within(root, candidate) {
		return "", &PathEscapeError{Path: rel, Root: root}
	}
	if real := evalExisting(candidate); !within(root, real) {
		return "", &PathEscapeError{Path: rel, Root: root}
	}
	return candidate, nil
}

// within reports whether p equals root or is a descendant of it.
func within(root, p string) bool {
	if p == root {
		return true
	}
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) && !filepath.IsAbs(r)
}

// evalExisting resolves symlinks along the longest existing prefix of p.
func evalExisting(p string) string {
	rest := ""
	cur := p
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			if rest == "" {
				return real
			}
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

// Relative converts an absolute path inside the root to a slash-separated relative path.
func (g *Gateway) Relative(abs string) (string, error) {
	root, err := g.Root()
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// WriteFile overwrites rel with content, creating parent directories.
// It returns the absolute path written.
func (g *Gateway) WriteFile(rel, content string) (string, error) {
	if int64(len(content)) > g.maxFileSize {
		return "", fmt.Errorf("%w: %d bytes > %d", ErrFileTooLarge, len(content), g.maxFileSize)
	}
	abs, err := g.Resolve(rel)
	if err != nil {
		return "", err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return abs, nil
}

// ReadFile returns the content of rel. A missing file is reported with
// exists=false and a nil error.
func (g *Gateway) ReadFile(rel string) (content string, exists bool, err error) {
	abs, err := g.Resolve(rel)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", true, fmt.Errorf("%s is a directory", rel)
	}
	if info.Size() > g.maxFileSize {
		return "", true, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, rel, info.Size())
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", true, fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), true, nil
}

// ListFiles returns root-relative, slash-separated paths of every regular file
// under dir, sorted. Paths inside .git are skipped.
func (g *Gateway) ListFiles(dir string) ([]string, error) {
	abs, err := g.Resolve(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	root, _ := g.Root()

	var files []string
	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("list %s: %w", dir, walkErr)
	}
	sort.Strings(files)
	return files, nil
}

// Write is the tool-facing form of WriteFile.
func (g *Gateway) Write(path, content string) string {
	abs, err := g.WriteFile(path, content)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return WrotePrefix + abs
}

// WrittenPath extracts the root-relative path from a successful Write result.
func (g *Gateway) WrittenPath(result string) (string, bool) {
	abs, ok := strings.CutPrefix(result, WrotePrefix)
	if !ok {
		return "", false
	}
	rel, err := g.Relative(abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Read is the tool-facing form of ReadFile. Missing files read as "".
func (g *Gateway) Read(path string) string {
	content, _, err := g.ReadFile(path)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return content
}

// List is the tool-facing form of ListFiles: newline-joined relative paths.
func (g *Gateway) List(dir string) string {
	if dir == "" {
		dir = "."
	}
	files, err := g.ListFiles(dir)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return strings.Join(files, "\n")
}

// CurrentDirectory returns the project root, or an error string.
func (g *Gateway) CurrentDirectory() string {
	root, err := g.Root()
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return root
}

// IsError reports whether a tool-facing result denotes failure.
func IsError(result string) bool {
	return strings.HasPrefix(result, ErrorPrefix)
}

// CountLines sums newline-delimited lines across files (relative paths).
// Unreadable files are skipped.
func (g *Gateway) CountLines(files []string) int {
	total := 0
	for _, f := range files {
		content, ok, err := g.ReadFile(f)
		if err != nil || !ok || content == "" {
			continue
		}
		total += strings.Count(content, "\n")
		if !strings.HasSuffix(content, "\n") {
			total++
		}
	}
	return total
}
