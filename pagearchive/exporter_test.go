package pagearchive

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

func TestEntryID(t *testing.T) {
	cases := []struct{ in, want string }{
		{idHome, idHome},
		{strings.ToUpper(idChild), idChild},
		{"0123 4567-89ab cdef 0123 4567 89ab cdef", "0123456789abcdef0123456789abcdef"},
	}
	for _, tc := range cases {
		if got := entryID(tc.in); got != tc.want {
			t.Errorf("entryID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	// ids that don't flatten to 32 hex chars derive a stable token instead
	a := entryID("someNoteId")
	if a != entryID("someNoteId") {
		t.Error("derived entry id is not stable")
	}
	if len(a) != 32 {
		t.Errorf("derived entry id %q is not 32 chars", a)
	}
	if a == entryID("otherNoteId") {
		t.Error("different ids derived the same token")
	}
}

func TestPlanNestsChildrenUnderPageStem(t *testing.T) {
	repo := fakerepo.New()
	repo.SetNote(&notesrv.Note{NoteID: idHome, Title: "Home", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<p>top</p>"))
	repo.SetNote(&notesrv.Note{NoteID: idChild, Title: "Child", Type: "text", ParentNoteIDs: []string{idHome}}, []byte("<p>nested</p>"))

	ex := NewExporter(capability.NewLoader())
	opts := &pipeline.Options{Path: filepath.Join(t.TempDir(), "out.zip")}
	opts.Normalize()

	files, err := ex.Plan(context.Background(), repo, []string{idHome}, opts, newOp(t))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("plan = %v", files)
	}
	if files[0].RelPath != "home "+idHome+".md" {
		t.Errorf("root entry = %q", files[0].RelPath)
	}
	wantChild := "home " + idHome + "/child " + idChild + ".md"
	if files[1].RelPath != wantChild {
		t.Errorf("child entry = %q, want %q", files[1].RelPath, wantChild)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := fakerepo.New()
	src.SetNote(&notesrv.Note{NoteID: idHome, Title: "Home", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<h1>Home</h1><p>top level</p>"))
	src.SetNote(&notesrv.Note{NoteID: idChild, Title: "Child", Type: "text", ParentNoteIDs: []string{idHome}}, []byte("<p>nested body</p>"))

	archive := filepath.Join(t.TempDir(), "roundtrip.zip")
	ex := NewExporter(capability.NewLoader())
	exOpts := &pipeline.Options{Path: archive}
	if err := ex.Validate(exOpts); err != nil {
		t.Fatal(err)
	}

	exported, err := ex.Export(context.Background(), src, []string{idHome}, exOpts, newOp(t))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if exported.ArchivePath != archive {
		t.Errorf("archive path = %q", exported.ArchivePath)
	}
	if exported.Summary.FailedFiles != 0 {
		t.Fatalf("failures: %v", exported.Summary.Errors)
	}

	dst := fakerepo.New()
	im := NewImporter(capability.NewLoader())
	imOpts := &pipeline.Options{Path: archive}
	if err := im.Validate(imOpts); err != nil {
		t.Fatal(err)
	}
	op := newOp(t)

	files, err := im.Scan(context.Background(), imOpts, op)
	if err != nil {
		t.Fatal(err)
	}
	result, err := im.Import(context.Background(), dst, files, imOpts, op)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Summary.FailedFiles != 0 {
		t.Fatalf("failures: %v", result.Summary.Errors)
	}

	var home string
	for _, childID := range dst.Note("root").ChildNoteIDs {
		if dst.Note(childID).Title == "Home" {
			home = childID
		}
	}
	if home == "" {
		t.Fatal("Home missing after round trip")
	}

	var child string
	for _, childID := range dst.Note(home).ChildNoteIDs {
		if dst.Note(childID).Title == "Child" {
			child = childID
		}
	}
	if child == "" {
		t.Fatal("hierarchy lost in round trip")
	}
	if !strings.Contains(string(dst.Content(child)), "nested body") {
		t.Errorf("child content = %q", dst.Content(child))
	}
}

func TestExportDryRunWritesNoArchive(t *testing.T) {
	repo := fakerepo.New()
	repo.SetNote(&notesrv.Note{NoteID: idHome, Title: "Home", Type: "text", ParentNoteIDs: []string{"root"}}, []byte("<p>top</p>"))

	archive := filepath.Join(t.TempDir(), "never.zip")
	ex := NewExporter(capability.NewLoader())
	opts := &pipeline.Options{Path: archive, DryRun: true}
	if err := ex.Validate(opts); err != nil {
		t.Fatal(err)
	}

	result, err := ex.Export(context.Background(), repo, []string{idHome}, opts, newOp(t))
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.TotalFiles != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}

	if _, err := os.Stat(archive); err == nil {
		t.Error("dry run wrote an archive")
	}
}
