package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestGateway(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	return New(t.TempDir(), "demo", opts...)
}

func TestRootCreatedLazily(t *testing.T) {
	base := t.TempDir()
	g := New(base, "demo")

	if _, err := os.Stat(filepath.Join(base, "demo")); !os.IsNotExist(err) {
		t.Fatalf("root should not exist before first use")
	}
	root, err := g.Root()
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestResolveContainment(t *testing.T) {
	g := newTestGateway(t)
	root, err := g.Root()
	if err != nil {
		t.Fatal(err)
	}

	inputs := []string{
		"main.txt",
		"src/app/../app/main.py",
		".",
		"",
		"../../etc/passwd",
		"a/../../b",
		"../demo/x",
		"../demo2/x",
		"/etc/passwd",
		"//double/slash",
		strings.Repeat("../", 20) + "tmp",
		"a/b/c/../../../../..",
		filepath.Join(root, "inside.txt"),
	}

	for _, in := range inputs {
		got, err := g.Resolve(in)
		if err != nil {
			if !IsPathEscape(err) {
				t.Errorf("Resolve(%q): expected PathEscapeError, got %v", in, err)
			}
			continue
		}
		if got != root && !strings.HasPrefix(got, root+string(filepath.Separator)) {
			t.Errorf("Resolve(%q) = %q escapes root %q", in, got, root)
		}
	}
}

func TestResolveEscapes(t *testing.T) {
	g := newTestGateway(t)
	for _, in := range []string{"../../etc/passwd", "..", "x/../../y", "../demo2/file"} {
		if _, err := g.Resolve(in); !IsPathEscape(err) {
			t.Errorf("Resolve(%q): expected escape, got %v", in, err)
		}
	}
}

func TestResolveAbsoluteTreatedAsRelative(t *testing.T) {
	g := newTestGateway(t)
	root, _ := g.Root()

	got, err := g.Resolve("/src/main.py")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "src", "main.py"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	g := newTestGateway(t)
	root, _ := g.Root()
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := g.Resolve("link/secret.txt"); !IsPathEscape(err) {
		t.Errorf("expected escape through symlink, got %v", err)
	}
}

func TestWriteResolvesUnderRoot(t *testing.T) {
	g := newTestGateway(t)
	root, _ := g.Root()

	res := g.Write("main.txt", "hello")
	if res != "WROTE:"+filepath.Join(root, "main.txt") {
		t.Fatalf("unexpected result %q", res)
	}
	data, err := os.ReadFile(filepath.Join(root, "main.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("file content %q, err %v", data, err)
	}
}

func TestWrittenPathIsCanonical(t *testing.T) {
	g := newTestGateway(t)

	for _, p := range []string{"./src/../main.txt", "main.txt", "/main.txt"} {
		rel, ok := g.WrittenPath(g.Write(p, "x"))
		if !ok || rel != "main.txt" {
			t.Errorf("%q: got %q, %v", p, rel, ok)
		}
	}
	if rel, ok := g.WrittenPath(g.Write("a/b/../c.go", "x")); !ok || rel != "a/c.go" {
		t.Errorf("got %q, %v", rel, ok)
	}
	if _, ok := g.WrittenPath(g.Write("../../x", "x")); ok {
		t.Error("failed write must not yield a path")
	}
	if _, ok := g.WrittenPath(WrotePrefix + "/elsewhere/x"); ok {
		t.Error("path outside root must be rejected")
	}
}

func TestWriteCreatesParentsAndOverwrites(t *testing.T) {
	g := newTestGateway(t)

	g.Write("pkg/deep/file.go", "v1")
	g.Write("pkg/deep/file.go", "v2")

	if got := g.Read("pkg/deep/file.go"); got != "v2" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestWriteEscapeReturnsErrorString(t *testing.T) {
	g := newTestGateway(t)

	res := g.Write("../../etc/passwd", "pwned")
	if !IsError(res) || !strings.Contains(res, "outside project root") {
		t.Fatalf("expected descriptive error string, got %q", res)
	}
}

func TestWriteTooLarge(t *testing.T) {
	g := newTestGateway(t, WithMaxFileSize(4))

	_, err := g.WriteFile("big.txt", "12345")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if res := g.Write("big.txt", "12345"); !IsError(res) {
		t.Errorf("expected error string, got %q", res)
	}
}

func TestReadMissingIsEmpty(t *testing.T) {
	g := newTestGateway(t)

	if got := g.Read("nope.txt"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	_, exists, err := g.ReadFile("nope.txt")
	if exists || err != nil {
		t.Errorf("expected (false, nil), got (%v, %v)", exists, err)
	}
}

func TestReadDirectoryIsError(t *testing.T) {
	g := newTestGateway(t)
	g.Write("dir/file.txt", "x")

	if got := g.Read("dir"); !IsError(got) {
		t.Errorf("expected error string, got %q", got)
	}
}

func TestListFiles(t *testing.T) {
	g := newTestGateway(t)
	g.Write("b.txt", "b")
	g.Write("src/a.py", "a")
	g.Write("src/nested/c.py", "c")
	g.Write(".git/HEAD", "ref")

	if got, want := g.List("."), "b.txt\nsrc/a.py\nsrc/nested/c.py"; got != want {
		t.Errorf("List(.) = %q, want %q", got, want)
	}
	if got, want := g.List("src/nested"), "src/nested/c.py"; got != want {
		t.Errorf("List(src/nested) = %q, want %q", got, want)
	}
	if got := g.List("b.txt"); !IsError(got) || !strings.Contains(got, "not a directory") {
		t.Errorf("expected not-a-directory error, got %q", got)
	}
}

func TestInvalidProjectName(t *testing.T) {
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		g := New(t.TempDir(), name)
		if _, err := g.Root(); !errors.Is(err, ErrInvalidProjectName) {
			t.Errorf("project %q: expected ErrInvalidProjectName, got %v", name, err)
		}
	}
}

func TestCountLines(t *testing.T) {
	g := newTestGateway(t)
	g.Write("a.txt", "one\ntwo\n")
	g.Write("b.txt", "three")

	if got := g.CountLines([]string{"a.txt", "b.txt", "missing.txt"}); got != 3 {
		t.Errorf("CountLines = %d, want 3", got)
	}
}
