package pagearchive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/internal/fakerepo"
	"github.com/noteport/noteport/pipeline"
)

const (
	idHome  = "0123456789abcdef0123456789abcdef"
	idChild = "abcdef0123456789abcdef0123456789"
	idLeaf  = "fedcba9876543210fedcba9876543210"
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

func makeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "export.zip")

	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(out)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	return archivePath
}

func TestScanListsEntriesWithoutExtracting(t *testing.T) {
	home := "Home " + idHome
	child := home + "/Child " + idChild
	archive := makeArchive(t, map[string]string{
		home + ".md":     "# Home\n",
		child + ".md":    "# Child\n",
		child + "/p.png": "bytes",
		".hidden":        "meta",
	})

	im := NewImporter(capability.NewLoader())
	opts := &pipeline.Options{Path: archive, IncludeAttachments: true}
	if err := im.Validate(opts); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	files, err := im.Scan(context.Background(), opts, newOp(t))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("scan = %d entries, want 3", len(files))
	}
	kinds := map[string]int{}
	for _, f := range files {
		kinds[f.Meta("kind")]++
	}
	if kinds["page"] != 2 || kinds["attachment"] != 1 {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestValidateRejectsNonZip(t *testing.T) {
	notZip := filepath.Join(t.TempDir(), "archive.tar")
	if err := os.WriteFile(notZip, []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}

	im := NewImporter(capability.NewLoader())
	if err := im.Validate(&pipeline.Options{Path: notZip}); err == nil {
		t.Error("non-zip path accepted")
	}
}

func TestImportRebuildsHierarchy(t *testing.T) {
	homeEntry := "Home " + idHome
	childEntry := homeEntry + "/Child " + idChild
	leafEntry := childEntry + "/Leaf " + idLeaf
	archive := makeArchive(t, map[string]string{
		homeEntry + ".md":          "# Home\n\ntop level\n",
		childEntry + ".md":         "# Child\n\nnested\n",
		leafEntry + ".md":          "# Leaf\n\ndeep\n",
		leafEntry + "/diagram.png": "png bytes",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	opts := &pipeline.Options{Path: archive, IncludeAttachments: true}
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

	if result.Summary.FailedFiles != 0 {
		t.Fatalf("failures: %v", result.Summary.Errors)
	}
	if len(result.CreatedIDs) != 3 {
		t.Fatalf("created = %v", result.CreatedIDs)
	}
	if len(result.AttachmentIDs) != 1 {
		t.Fatalf("attachments = %v", result.AttachmentIDs)
	}

	var home string
	for _, childID := range repo.Note("root").ChildNoteIDs {
		if repo.Note(childID).Title == "Home" {
			home = childID
		}
	}
	if home == "" {
		t.Fatal("Home note missing under root")
	}

	var child string
	for _, childID := range repo.Note(home).ChildNoteIDs {
		if repo.Note(childID).Title == "Child" {
			child = childID
		}
	}
	if child == "" {
		t.Fatal("Child note missing under Home")
	}

	var leaf string
	for _, childID := range repo.Note(child).ChildNoteIDs {
		if repo.Note(childID).Title == "Leaf" {
			leaf = childID
		}
	}
	if leaf == "" {
		t.Fatal("Leaf note missing under Child")
	}
	if !strings.Contains(string(repo.Content(leaf)), "deep") {
		t.Errorf("leaf content = %q", repo.Content(leaf))
	}
}

func TestImportPoisonsFailedSubtree(t *testing.T) {
	brokenEntry := "Broken " + idHome
	innerEntry := brokenEntry + "/Inner " + idChild
	archive := makeArchive(t, map[string]string{
		brokenEntry + ".md":            "# Broken\n",
		innerEntry + ".md":             "# Inner\n",
		"Standalone " + idLeaf + ".md": "# Standalone\n",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	repo.FailCreateTitles["Broken"] = true

	opts := &pipeline.Options{Path: archive}
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

	if result.Summary.SuccessfulFiles != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.Summary.FailedFiles != 2 {
		t.Errorf("summary = %+v", result.Summary)
	}

	for _, r := range result.Files {
		if strings.HasPrefix(r.Path, "Broken "+idHome+"/") {
			if r.Err == nil || r.Err.Code != pipeline.CodeAttachmentParent {
				t.Errorf("poisoned child result = %+v", r)
			}
		}
	}
	if len(result.CreatedIDs) != 1 {
		t.Errorf("created = %v", result.CreatedIDs)
	}
}

func TestImportStrictModeStripsInlineMarkup(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"Styled " + idHome + ".md": "Some **bold** and [a link](x.md) here.\n",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	opts := &pipeline.Options{Path: archive, BlockMode: "strict"}
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
	if len(result.CreatedIDs) != 1 {
		t.Fatalf("created = %v", result.CreatedIDs)
	}

	got := string(repo.Content(result.CreatedIDs[0]))
	if strings.Contains(got, "**") || strings.Contains(got, "](") {
		t.Errorf("strict mode kept inline markup: %q", got)
	}
	if !strings.Contains(got, "bold") || !strings.Contains(got, "a link") {
		t.Errorf("strict mode lost text: %q", got)
	}
}

func TestImportDryRunSkipsRepository(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"Page " + idHome + ".md": "# Page\n",
	})

	im := NewImporter(capability.NewLoader())
	repo := fakerepo.New()
	opts := &pipeline.Options{Path: archive, DryRun: true}
	if err := im.Validate(opts); err != nil {
		t.Fatal(err)
	}
	op := newOp(t)

	files, err := im.Scan(context.Background(), opts, op)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := im.Import(context.Background(), repo, files, opts, op); err != nil {
		t.Fatal(err)
	}
	if repo.TotalCalls() != 0 {
		t.Errorf("dry run made %d repository calls", repo.TotalCalls())
	}
}
