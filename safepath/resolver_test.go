package safepath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return r
}

func TestResolveStaysInsideRoot(t *testing.T) {
	r := newTestResolver(t)

	abs, err := r.Resolve("notes/today.md")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.HasPrefix(abs, r.Root()) {
		t.Errorf("resolved path %q escapes root %q", abs, r.Root())
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	r := newTestResolver(t)

	bad := []string{
		"../escape.md",
		"notes/../../escape.md",
		"..",
		"a/../../../../etc/passwd",
	}
	for _, candidate := range bad {
		if _, err := r.Resolve(candidate); err == nil {
			t.Errorf("Resolve(%q) should have been rejected", candidate)
		}
	}
}

func TestResolveRejectsControlCharacters(t *testing.T) {
	r := newTestResolver(t)

	bad := []string{
		"notes\x00.md",
		"notes\n.md",
		"be\x07p.md",
		"del\x7f.md",
	}
	for _, candidate := range bad {
		if _, err := r.Resolve(candidate); err == nil {
			t.Errorf("Resolve(%q) should have been rejected", candidate)
		}
	}
}

func TestResolveRejectsShellMetacharacters(t *testing.T) {
	r := newTestResolver(t)

	for _, ch := range shellMeta {
		candidate := "note" + string(ch) + ".md"
		if _, err := r.Resolve(candidate); err == nil {
			t.Errorf("Resolve(%q) should have been rejected", candidate)
		}
	}
}

func TestResolveRejectsTildeComponent(t *testing.T) {
	r := newTestResolver(t)

	for _, candidate := range []string{"~/secrets.md", "~root/x.md", "notes/~/x.md"} {
		if _, err := r.Resolve(candidate); err == nil {
			t.Errorf("Resolve(%q) should have been rejected", candidate)
		}
	}

	// a tilde inside a name is fine
	if _, err := r.Resolve("notes/~backup.md"); err != nil {
		t.Errorf("Resolve with embedded tilde failed: %v", err)
	}
}

func TestResolveRejectsEmptyPath(t *testing.T) {
	r := newTestResolver(t)
	if _, err := r.Resolve(""); err == nil {
		t.Error("Resolve of empty path should have been rejected")
	}
}

func TestResolveDepthLimit(t *testing.T) {
	r := newTestResolver(t).WithMaxDepth(3)

	if _, err := r.Resolve("a/b/c.md"); err != nil {
		t.Errorf("Resolve at max depth failed: %v", err)
	}
	if _, err := r.Resolve("a/b/c/d.md"); err == nil {
		t.Error("Resolve beyond max depth should have been rejected")
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	r := newTestResolver(t)

	if err := r.WriteFile("deep/nested/file.md", []byte("hello")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := r.ReadFile("deep/nested/file.md")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("round-trip mismatch: %q", data)
	}
}

func TestRelInverseOfResolve(t *testing.T) {
	r := newTestResolver(t)

	abs, err := r.Resolve("notes/today.md")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	rel, err := r.Rel(abs)
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}
	if rel != filepath.Join("notes", "today.md") {
		t.Errorf("Rel = %q, want notes/today.md", rel)
	}
}

func TestRelRejectsOutsidePaths(t *testing.T) {
	r := newTestResolver(t)

	outside := filepath.Join(os.TempDir(), "somewhere-else", "x.md")
	if _, err := r.Rel(outside); err == nil {
		t.Errorf("Rel(%q) should have been rejected", outside)
	}
}
