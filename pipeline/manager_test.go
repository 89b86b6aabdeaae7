package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteport/noteport/internal/fakerepo"
	"github.com/noteport/noteport/notesrv"
)

// stubImporter is the minimal handler used to exercise the registry.
type stubImporter struct {
	scanned  int
	imported int
}

func (s *stubImporter) Format() string               { return "stub" }
func (s *stubImporter) Describe() string             { return "stub format for registry tests" }
func (s *stubImporter) Validate(opts *Options) error { return nil }

func (s *stubImporter) Scan(ctx context.Context, opts *Options, op *OperationContext) ([]FileInfo, error) {
	s.scanned++
	return []FileInfo{{RelPath: "a.md"}, {RelPath: "b.md"}}, nil
}

func (s *stubImporter) Import(ctx context.Context, repo Repository, files []FileInfo, opts *Options, op *OperationContext) (*ImportResult, error) {
	s.imported++
	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i] = FileResult{Path: f.RelPath, Success: true}
	}
	return &ImportResult{
		Summary: BuildSummary(files, results, nil, op.StartedAt),
		Files:   results,
	}, nil
}

func TestManagerRejectsUnknownFormat(t *testing.T) {
	m := NewManager(fakerepo.New())

	_, err := m.Import(context.Background(), "no-such-format", &Options{Path: "x"})
	require.Error(t, err)

	var op *OpError
	require.ErrorAs(t, err, &op)
	assert.Equal(t, CodeUnknownFormat, op.Code)

	_, err = m.Sync(context.Background(), "no-such-format", &Options{Path: "x"})
	require.Error(t, err)
	require.ErrorAs(t, err, &op)
	assert.Equal(t, CodeUnsupportedOperation, op.Code)
}

func TestManagerRunsScanThenImport(t *testing.T) {
	stub := &stubImporter{}
	m := NewManager(fakerepo.New())
	m.RegisterImporter(stub)

	result, err := m.Import(context.Background(), "stub", &Options{Path: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.scanned)
	assert.Equal(t, 1, stub.imported)
	assert.Equal(t, "stub", result.Format)
	assert.Equal(t, 2, result.Summary.SuccessfulFiles)
}

// stubSyncer rejects its configuration so the registry's validate-first
// contract can be observed.
type stubSyncer struct {
	synced int
}

func (s *stubSyncer) Format() string { return "stub-sync" }

func (s *stubSyncer) Validate(opts *Options) error {
	return Errf(CodeBadConfig, "stub-sync always rejects its configuration")
}

func (s *stubSyncer) Sync(ctx context.Context, repo Repository, opts *Options, op *OperationContext) (*SyncResult, error) {
	s.synced++
	return &SyncResult{}, nil
}

func TestManagerSyncValidatesBeforeRunning(t *testing.T) {
	stub := &stubSyncer{}
	m := NewManager(fakerepo.New())
	m.RegisterSyncer(stub)

	_, err := m.Sync(context.Background(), "stub-sync", &Options{Path: t.TempDir()})
	require.Error(t, err)

	var op *OpError
	require.ErrorAs(t, err, &op)
	assert.Equal(t, CodeBadConfig, op.Code)
	assert.Zero(t, stub.synced, "sync must not run when validation fails")
}

func TestManagerFormatListings(t *testing.T) {
	m := NewManager(fakerepo.New())
	m.RegisterImporter(&stubImporter{})

	assert.Equal(t, []string{"stub"}, m.ImportFormats())
	assert.Empty(t, m.ExportFormats())
	assert.Equal(t, "stub format for registry tests", m.DescribeImporter("stub"))
	assert.Equal(t, "", m.DescribeImporter("absent"))
}

func TestUpsertNotePolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh note", func(t *testing.T) {
		repo := fakerepo.New()
		id, updated, skipped, opErr := UpsertNote(ctx, repo, "root", "Fresh", "<p>hi</p>", DuplicateSkip)
		require.Nil(t, opErr)
		assert.False(t, updated)
		assert.False(t, skipped)
		assert.Equal(t, "<p>hi</p>", string(repo.Content(id)))
	})

	t.Run("skip", func(t *testing.T) {
		repo := fakerepo.New()
		repo.SetNote(&notesrv.Note{NoteID: "n1", Title: "Dup", ParentNoteIDs: []string{"root"}}, []byte("old"))

		id, updated, skipped, opErr := UpsertNote(ctx, repo, "root", "Dup", "<p>new</p>", DuplicateSkip)
		require.Nil(t, opErr)
		assert.True(t, skipped)
		assert.False(t, updated)
		assert.Equal(t, "n1", id)
		assert.Equal(t, "old", string(repo.Content("n1")))
	})

	t.Run("overwrite", func(t *testing.T) {
		repo := fakerepo.New()
		repo.SetNote(&notesrv.Note{NoteID: "n1", Title: "Dup", ParentNoteIDs: []string{"root"}}, []byte("old"))

		id, updated, skipped, opErr := UpsertNote(ctx, repo, "root", "Dup", "<p>new</p>", DuplicateOverwrite)
		require.Nil(t, opErr)
		assert.True(t, updated)
		assert.False(t, skipped)
		assert.Equal(t, "<p>new</p>", string(repo.Content(id)))
	})

	t.Run("merge", func(t *testing.T) {
		repo := fakerepo.New()
		repo.SetNote(&notesrv.Note{NoteID: "n1", Title: "Dup", ParentNoteIDs: []string{"root"}}, []byte("<p>old</p>"))

		_, updated, _, opErr := UpsertNote(ctx, repo, "root", "Dup", "<p>new</p>", DuplicateMerge)
		require.Nil(t, opErr)
		assert.True(t, updated)

		merged := string(repo.Content("n1"))
		assert.Contains(t, merged, "<p>old</p>")
		assert.Contains(t, merged, "<p>new</p>")
	})
}
