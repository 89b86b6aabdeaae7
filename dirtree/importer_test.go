package dirtree

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/internal/fakerepo"
	"github.com/noteport/noteport/pipeline"
)

func newOp(t *testing.T) *pipeline.OperationContext {
	t.Helper()
	op, err := pipeline.NewOperationContext(FormatName, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(op.Cleanup)
	return op
}

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0640); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func scanPaths(t *testing.T, opts *pipeline.Options) []string {
	t.Helper()
	im := NewImporter(capability.NewLoader())
	if err := im.Validate(opts); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	files, err := im.Scan(context.Background(), opts, newOp(t))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	return paths
}

func TestScanDefaultPatterns(t *testing.T) {
	root := writeDir(t, map[string]string{
		"readme.md":  "# Readme\n",
		"notes.txt":  "plain notes",
		"index.html": "<h1>Index</h1>",
		"binary.dat": "nope",
	})

	got := scanPaths(t, &pipeline.Options{Path: root})
	want := "index.html,notes.txt,readme.md"
	if strings.Join(got, ",") != want {
		t.Errorf("scan = %v, want %s", got, want)
	}
}

func TestScanCustomPatterns(t *testing.T) {
	root := writeDir(t, map[string]string{
		"log-01.txt": "one",
		"log-02.txt": "two",
		"other.md":   "# Other\n",
	})

	got := scanPaths(t, &pipeline.Options{Path: root, Patterns: []string{"log-*.txt"}})
	if strings.Join(got, ",") != "log-01.txt,log-02.txt" {
		t.Errorf("scan = %v", got)
	}
}

func TestScanNonRecursiveStaysAtTopLevel(t *testing.T) {
	root := writeDir(t, map[string]string{
		"top.md":        "# Top\n",
		"deep/inner.md": "# Inner\n",
	})

	got := scanPaths(t, &pipeline.Options{Path: root})
	if strings.Join(got, ",") != "top.md" {
		t.Errorf("non-recursive scan = %v", got)
	}

	got = scanPaths(t, &pipeline.Options{Path: root, Recursive: true})
	if strings.Join(got, ",") != "deep/inner.md,top.md" {
		t.Errorf("recursive scan = %v", got)
	}
}

func TestScanRecursiveSkipsDotDirs(t *testing.T) {
	root := writeDir(t, map[string]string{
		"top.md":         "# Top\n",
		".git/config.md": "not a page",
	})

	got := scanPaths(t, &pipeline.Options{Path: root, Recursive: true})
	if strings.Join(got, ",") != "top.md" {
		t.Errorf("scan = %v", got)
	}
}

func TestValidateRejectsBadPattern(t *testing.T) {
	im := NewImporter(capability.NewLoader())
	opts := &pipeline.Options{Path: t.TempDir(), Patterns: []string{"[unclosed"}}

	err := im.Validate(opts)
	if err == nil {
		t.Fatal("bad glob pattern accepted")
	}
	var opErr *pipeline.OpError
	if !errors.As(err, &opErr) || opErr.Code != pipeline.CodeBadConfig {
		t.Errorf("error = %v, want bad-config", err)
	}
}

func TestImportFlatIgnoresDirectories(t *testing.T) {
	root := writeDir(t, map[string]string{
		"a.md":      "# A\n",
		"deep/b.md": "# B\n",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	opts := &pipeline.Options{Path: root, Recursive: true}
	if err := im.Validate(opts); err != nil {
		t.Fatal(err)
	}
	op := newOp(t)

	files, err := im.Scan(context.Background(), opts, op)
	if err != nil {
		t.Fatal(err)
	}
	result, err := im.Import(context.Background(), repo, files, opts, op)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// flat import: both pages directly under root, no container notes
	if len(result.CreatedIDs) != 2 {
		t.Fatalf("created = %v", result.CreatedIDs)
	}
	rootNote := repo.Note("root")
	if len(rootNote.ChildNoteIDs) != 2 {
		t.Errorf("root children = %v", rootNote.ChildNoteIDs)
	}
}

func TestImportPreserveStructureBuildsContainers(t *testing.T) {
	root := writeDir(t, map[string]string{
		"a.md":      "# A\n",
		"deep/b.md": "# B\n",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	opts := &pipeline.Options{Path: root, Recursive: true, PreserveStructure: true}
	if err := im.Validate(opts); err != nil {
		t.Fatal(err)
	}
	op := newOp(t)

	files, err := im.Scan(context.Background(), opts, op)
	if err != nil {
		t.Fatal(err)
	}
	result, err := im.Import(context.Background(), repo, files, opts, op)
	if err != nil {
		t.Fatal(err)
	}

	// 2 pages plus the deep container
	if len(result.CreatedIDs) != 3 {
		t.Fatalf("created = %v", result.CreatedIDs)
	}

	var deep string
	for _, childID := range repo.Note("root").ChildNoteIDs {
		if repo.Note(childID).Title == "deep" {
			deep = childID
		}
	}
	if deep == "" {
		t.Fatal("deep container missing")
	}
	if len(repo.Note(deep).ChildNoteIDs) != 1 {
		t.Errorf("deep children = %v", repo.Note(deep).ChildNoteIDs)
	}
}
