package dirtree

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/internal/fakerepo"
	"github.com/noteport/noteport/notesrv"
	"github.com/noteport/noteport/pipeline"
)

func TestPlanSuffixesCollidingNames(t *testing.T) {
	repo := fakerepo.New()
	repo.SetNote(&notesrv.Note{NoteID: "d1", Title: "Duplicate", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<p>one</p>"))
	repo.SetNote(&notesrv.Note{NoteID: "d2", Title: "Duplicate", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<p>two</p>"))

	ex := NewExporter(capability.NewLoader())
	opts := &pipeline.Options{Path: t.TempDir()}
	opts.Normalize()

	files, err := ex.Plan(context.Background(), repo, []string{"root"}, opts, newOp(t))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	names := map[string]bool{}
	for _, f := range files {
		if names[f.RelPath] {
			t.Fatalf("plan produced colliding path %q", f.RelPath)
		}
		names[f.RelPath] = true
	}
	if !names["duplicate.md"] || !names["duplicate-1.md"] {
		t.Errorf("expected suffixed duplicates, got %v", names)
	}
}

func TestExportFlatTree(t *testing.T) {
	repo := fakerepo.New()
	repo.SetNote(&notesrv.Note{NoteID: "p1", Title: "Parent", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<h1>Parent</h1><p>top</p>"))
	repo.SetNote(&notesrv.Note{NoteID: "c1", Title: "Leaf", Type: "text", ParentNoteIDs: []string{"p1"}}, []byte("<p>leaf body</p>"))

	dest := t.TempDir()
	ex := NewExporter(capability.NewLoader())
	opts := &pipeline.Options{Path: dest}
	if err := ex.Validate(opts); err != nil {
		t.Fatal(err)
	}

	result, err := ex.Export(context.Background(), repo, []string{"p1"}, opts, newOp(t))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.Summary.FailedFiles != 0 {
		t.Fatalf("failures: %v", result.Summary.Errors)
	}

	for _, name := range []string{"parent.md", "leaf.md"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dest, "leaf.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "leaf body") {
		t.Errorf("leaf content = %q", data)
	}
}

func TestExportPreserveStructureNests(t *testing.T) {
	repo := fakerepo.New()
	repo.SetNote(&notesrv.Note{NoteID: "p1", Title: "Parent", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<p>top</p>"))
	repo.SetNote(&notesrv.Note{NoteID: "c1", Title: "Leaf", Type: "text", ParentNoteIDs: []string{"p1"}}, []byte("<p>leaf</p>"))

	dest := t.TempDir()
	ex := NewExporter(capability.NewLoader())
	opts := &pipeline.Options{Path: dest, PreserveStructure: true}
	if err := ex.Validate(opts); err != nil {
		t.Fatal(err)
	}

	if _, err := ex.Export(context.Background(), repo, []string{"p1"}, opts, newOp(t)); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dest, "parent", "leaf.md")); err != nil {
		t.Errorf("nested leaf missing: %v", err)
	}
}
