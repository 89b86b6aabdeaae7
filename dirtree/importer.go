// Package dirtree moves plain directories of documents (no archive, no
// editor conventions, just files matched by glob patterns) in and out of the
// note repository.
package dirtree

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/content"
	"github.com/noteport/noteport/notesrv"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

const FormatName = "dirtree"

// defaultPatterns are the page globs used when none are configured.
var defaultPatterns = []string{"*.md", "*.txt", "*.html"}

type Importer struct {
	chain *content.Chain
}

func NewImporter(loader *capability.Loader) *Importer {
	return &Importer{chain: content.NewChain(loader.FrontMatterCodec())}
}

func (im *Importer) Format() string { return FormatName }

func (im *Importer) Describe() string {
	return "plain directory of documents matched by glob patterns"
}

func (im *Importer) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	stat, err := os.Stat(opts.Path)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "source %s: %v", opts.Path, err)
	}
	if !stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "source %s is not a directory", opts.Path)
	}

	for _, pat := range patterns(opts) {
		if _, err := filepath.Match(pat, "probe"); err != nil {
			return pipeline.Errf(pipeline.CodeBadConfig, "bad glob pattern %q: %v", pat, err)
		}
	}

	return nil
}

func patterns(opts *pipeline.Options) []string {
	if len(opts.Patterns) == 0 {
		return defaultPatterns
	}
	return opts.Patterns
}

func matchesAny(pats []string, name string) bool {
	for _, pat := range pats {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// Scan enumerates matching files.  Without Recursive only the top level is
// considered; the listing is sorted so repeated scans agree.
func (im *Importer) Scan(ctx context.Context, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("dirtree: couldn't build path resolver: %w", err)
	}

	pats := patterns(opts)
	files := []pipeline.FileInfo{}

	err = filepath.WalkDir(resolver.Root(), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("dirtree: error during file tree walk: %w", walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path == resolver.Root() {
				return nil
			}
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := resolver.Rel(path)
		if err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		kind := ""
		switch {
		case matchesAny(pats, d.Name()):
			kind = "page"
		case opts.IncludeAttachments && pipeline.IsAttachmentExt(ext):
			kind = "attachment"
		default:
			return nil
		}

		stat, err := d.Info()
		if err != nil {
			return fmt.Errorf("dirtree: couldn't stat %s: %w", path, err)
		}

		files = append(files, pipeline.FileInfo{
			Path:    rel,
			AbsPath: path,
			RelPath: rel,
			Name:    d.Name(),
			Ext:     ext,
			Size:    stat.Size(),
			ModTime: stat.ModTime(),
			Depth:   strings.Count(filepath.ToSlash(rel), "/"),
			Metadata: map[string]string{
				"kind": kind,
				"dir":  filepath.ToSlash(filepath.Dir(rel)),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func (im *Importer) Import(ctx context.Context, repo pipeline.Repository, files []pipeline.FileInfo, opts *pipeline.Options, op *pipeline.OperationContext) (*pipeline.ImportResult, error) {
	if opts.DryRun {
		return pipeline.DryRunImportResult(FormatName, files, op), nil
	}

	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("dirtree: couldn't build path resolver: %w", err)
	}

	st := &dirImport{
		chain:     im.chain,
		repo:      repo,
		resolver:  resolver,
		opts:      opts,
		collector: pipeline.NewErrorCollector(),
		dirNotes:  map[string]string{".": opts.ParentNoteID, "": opts.ParentNoteID},
	}

	tracker := pipeline.NewProgressTracker(op, "import", len(files))
	tracker.Start(fmt.Sprintf("importing %d files from %s", len(files), opts.Path))

	// Subdirectory containers only exist when structure is preserved;
	// without it everything lands flat under the parent note.
	if opts.PreserveStructure {
		if err := st.ensureContainers(ctx, files); err != nil {
			return nil, fmt.Errorf("dirtree: couldn't establish directory hierarchy: %w", err)
		}
	}

	pageIdx := []int{}
	attachmentIdx := []int{}
	for i, f := range files {
		if f.IsAttachment() {
			attachmentIdx = append(attachmentIdx, i)
		} else {
			pageIdx = append(pageIdx, i)
		}
	}

	results := make([]pipeline.FileResult, len(files))
	if err := st.runGroup(ctx, files, pageIdx, results, tracker, st.importPage); err != nil {
		return nil, err
	}
	if err := st.runGroup(ctx, files, attachmentIdx, results, tracker, st.importAttachment); err != nil {
		return nil, err
	}

	tracker.Complete("import finished")

	return &pipeline.ImportResult{
		Summary:       pipeline.BuildSummary(files, results, st.collector, op.StartedAt),
		Files:         results,
		CreatedIDs:    st.createdIDs,
		UpdatedIDs:    st.updatedIDs,
		AttachmentIDs: st.attachmentIDs,
	}, nil
}

type dirImport struct {
	chain    *content.Chain
	repo     pipeline.Repository
	resolver *safepath.Resolver
	opts     *pipeline.Options

	collector *pipeline.ErrorCollector

	mu            sync.Mutex
	dirNotes      map[string]string
	createdIDs    []string
	updatedIDs    []string
	attachmentIDs []string
}

func (st *dirImport) ensureContainers(ctx context.Context, files []pipeline.FileInfo) error {
	dirSet := map[string]bool{}
	for _, f := range files {
		dir := f.Meta("dir")
		for dir != "." && dir != "" && dir != "/" {
			dirSet[dir] = true
			dir = filepath.ToSlash(filepath.Dir(dir))
		}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") < strings.Count(dirs[j], "/") ||
			(strings.Count(dirs[i], "/") == strings.Count(dirs[j], "/") && dirs[i] < dirs[j])
	})

	for _, dir := range dirs {
		parentDir := filepath.ToSlash(filepath.Dir(dir))
		parentID, ok := st.dirNotes[parentDir]
		if !ok {
			return fmt.Errorf("dirtree: missing container for %s", parentDir)
		}

		title := filepath.Base(dir)

		existing, err := pipeline.FindChildByTitle(ctx, st.repo, parentID, title)
		if err != nil {
			return fmt.Errorf("dirtree: couldn't check for existing container %s: %w", title, err)
		}
		if existing != nil {
			st.dirNotes[dir] = existing.NoteID
			continue
		}

		created, err := st.repo.CreateNote(ctx, notesrv.CreateNoteRequest{
			ParentNoteID: parentID,
			Title:        title,
			Type:         "book",
			Content:      "",
		})
		if err != nil {
			return fmt.Errorf("dirtree: couldn't create container note %s: %w", title, err)
		}

		st.dirNotes[dir] = created.Note.NoteID
		st.createdIDs = append(st.createdIDs, created.Note.NoteID)
	}

	return nil
}

func (st *dirImport) runGroup(ctx context.Context, files []pipeline.FileInfo, idx []int, results []pipeline.FileResult, tracker *pipeline.ProgressTracker, fn func(context.Context, pipeline.FileInfo) pipeline.FileResult) error {
	if len(idx) == 0 {
		return nil
	}

	group := make([]pipeline.FileInfo, len(idx))
	for i, j := range idx {
		group[i] = files[j]
	}

	for _, chunk := range pipeline.Chunk(group, st.opts.BatchSize) {
		chunkResults, err := pipeline.RunBatch(ctx, chunk, st.opts.Concurrency, func(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
			r := fn(ctx, f)
			tracker.Step(f.RelPath)
			if r.Err != nil {
				st.collector.Add(r.Err)
			}
			return r
		})
		if err != nil {
			return err
		}
		for i := range chunkResults {
			results[idx[i]] = chunkResults[i]
		}
		idx = idx[len(chunk):]
	}

	return nil
}

func (st *dirImport) parentFor(f pipeline.FileInfo) string {
	if !st.opts.PreserveStructure {
		return st.opts.ParentNoteID
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.dirNotes[f.Meta("dir")]; ok {
		return id
	}
	return st.opts.ParentNoteID
}

func (st *dirImport) importPage(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
	data, err := st.resolver.ReadFile(f.RelPath)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", f.RelPath),
		}
	}

	info, err := st.chain.Parse(data, f.Name)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("path", f.RelPath),
		}
	}

	htmlBody := content.MarkdownToHTML(info.Body)

	noteID, updated, skipped, opErr := pipeline.UpsertNote(ctx, st.repo, st.parentFor(f), info.Title, htmlBody, st.opts.Duplicates)
	if opErr != nil {
		return pipeline.FileResult{Path: f.RelPath, Err: opErr}
	}

	st.mu.Lock()
	if updated {
		st.updatedIDs = append(st.updatedIDs, noteID)
	} else if !skipped {
		st.createdIDs = append(st.createdIDs, noteID)
	}
	st.mu.Unlock()

	if skipped {
		return pipeline.FileResult{
			Path:       f.RelPath,
			Skipped:    true,
			SkipReason: "duplicate title under parent",
			NoteID:     noteID,
		}
	}

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: noteID}
}

func (st *dirImport) importAttachment(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
	data, err := st.resolver.ReadFile(f.RelPath)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", f.RelPath),
		}
	}

	role := "file"
	if pipeline.IsImageExt(f.Ext) {
		role = "image"
	}

	created, err := st.repo.CreateAttachment(ctx, notesrv.CreateAttachmentRequest{
		OwnerID: st.parentFor(f),
		Role:    role,
		Mime:    pipeline.MimeByExt(f.Ext),
		Title:   f.Name,
		Content: string(data),
	})
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeRepositoryCall, err).WithDetail("path", f.RelPath),
		}
	}

	st.mu.Lock()
	st.attachmentIDs = append(st.attachmentIDs, created.AttachmentID)
	st.mu.Unlock()

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: st.parentFor(f)}
}
