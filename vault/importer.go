// Package vault moves hierarchical Markdown note collections (the kind a
// wiki-style editor keeps on disk: front matter, wiki links, attachments in
// the page's directory) in and out of the note repository.
package vault

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

const FormatName = "vault"

// skipDirs are editor-private directories no import should descend into.
var skipDirs = map[string]bool{
	".obsidian": true,
	".trash":    true,
	".git":      true,
}

type Importer struct {
	chain *content.Chain
}

func NewImporter(loader *capability.Loader) *Importer {
	return &Importer{chain: content.NewChain(loader.FrontMatterCodec())}
}

func (im *Importer) Format() string { return FormatName }

func (im *Importer) Describe() string {
	return "hierarchical Markdown vault with front matter and wiki links"
}

func (im *Importer) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	stat, err := os.Stat(opts.Path)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "vault path %s: %v", opts.Path, err)
	}
	if !stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "vault path %s is not a directory", opts.Path)
	}

	return nil
}

// Scan enumerates pages and attachments without contacting the repository.
// The listing is sorted, so repeated scans over an unchanged vault yield
// identical results.
func (im *Importer) Scan(ctx context.Context, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("vault: couldn't build path resolver: %w", err)
	}

	files := []pipeline.FileInfo{}

	err = filepath.WalkDir(resolver.Root(), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("vault: error during file tree walk: %w", walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if skipDirs[d.Name()] {
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
		case ext == ".md" || ext == ".markdown":
			kind = "page"
		case opts.IncludeAttachments && pipeline.IsAttachmentExt(ext):
			kind = "attachment"
		default:
			return nil
		}

		stat, err := d.Info()
		if err != nil {
			return fmt.Errorf("vault: couldn't stat %s: %w", path, err)
		}

		info := pipeline.FileInfo{
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
		}

		if data, err := resolver.ReadFile(rel); err == nil {
			info.Metadata["sha256"] = pipeline.Checksum(data)
		}

		files = append(files, info)
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
		return nil, fmt.Errorf("vault: couldn't build path resolver: %w", err)
	}

	st := newImportState(im.chain, repo, resolver, opts, op)

	tracker := pipeline.NewProgressTracker(op, "import", len(files))
	tracker.Start(fmt.Sprintf("importing %d files from %s", len(files), opts.Path))

	if err := st.ensureContainers(ctx, files); err != nil {
		return nil, fmt.Errorf("vault: couldn't establish directory hierarchy: %w", err)
	}

	results := make([]pipeline.FileResult, len(files))

	// Pages go depth by depth so a page's container note always exists
	// before any page beneath it; only same-depth, unrelated pages share a
	// batch.
	byDepth := map[int][]int{}
	attachmentIdx := []int{}
	for i, f := range files {
		if f.IsAttachment() {
			attachmentIdx = append(attachmentIdx, i)
			continue
		}
		byDepth[f.Depth] = append(byDepth[f.Depth], i)
	}

	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, depth := range depths {
		if err := st.runGroup(ctx, files, byDepth[depth], results, tracker, st.importPage); err != nil {
			return nil, err
		}
	}

	// Attachments last: they need their owning note's repository id.
	if err := st.runGroup(ctx, files, attachmentIdx, results, tracker, st.importAttachment); err != nil {
		return nil, err
	}

	tracker.Complete("import finished")

	result := &pipeline.ImportResult{
		Summary:       pipeline.BuildSummary(files, results, st.collector, op.StartedAt),
		Files:         results,
		CreatedIDs:    st.createdIDs,
		UpdatedIDs:    st.updatedIDs,
		AttachmentIDs: st.attachmentIDs,
	}
	return result, nil
}

// importState carries the shared maps of one import run.  The id maps are
// written from batch workers, hence the mutex.
type importState struct {
	chain    *content.Chain
	repo     pipeline.Repository
	resolver *safepath.Resolver
	opts     *pipeline.Options
	op       *pipeline.OperationContext

	collector *pipeline.ErrorCollector

	mu            sync.Mutex
	dirNotes      map[string]string // vault directory -> repository note id
	pageNotes     map[string]string // page path sans extension -> repository note id
	createdIDs    []string
	updatedIDs    []string
	attachmentIDs []string
}

func newImportState(chain *content.Chain, repo pipeline.Repository, resolver *safepath.Resolver, opts *pipeline.Options, op *pipeline.OperationContext) *importState {
	return &importState{
		chain:     chain,
		repo:      repo,
		resolver:  resolver,
		opts:      opts,
		op:        op,
		collector: pipeline.NewErrorCollector(),
		dirNotes:  map[string]string{".": opts.ParentNoteID, "": opts.ParentNoteID},
		pageNotes: map[string]string{},
	}
}

// ensureContainers creates one container note per vault directory that holds
// files, parents before children.  Existing children with the same title are
// reused rather than duplicated.
func (st *importState) ensureContainers(ctx context.Context, files []pipeline.FileInfo) error {
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
			return fmt.Errorf("vault: missing container for %s", parentDir)
		}

		title := filepath.Base(dir)

		existing, err := pipeline.FindChildByTitle(ctx, st.repo, parentID, title)
		if err != nil {
			return fmt.Errorf("vault: couldn't check for existing container %s: %w", title, err)
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
			return fmt.Errorf("vault: couldn't create container note %s: %w", title, err)
		}

		st.dirNotes[dir] = created.Note.NoteID
		st.mu.Lock()
		st.createdIDs = append(st.createdIDs, created.Note.NoteID)
		st.mu.Unlock()
	}

	return nil
}

// runGroup pushes one group of file indexes through the batch pool and
// scatters results back to their original positions.
func (st *importState) runGroup(ctx context.Context, files []pipeline.FileInfo, idx []int, results []pipeline.FileResult, tracker *pipeline.ProgressTracker, fn func(context.Context, pipeline.FileInfo) pipeline.FileResult) error {
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

func (st *importState) parentFor(f pipeline.FileInfo) (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	id, ok := st.dirNotes[f.Meta("dir")]
	return id, ok
}

func (st *importState) importPage(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
	parentID, ok := st.parentFor(f)
	if !ok {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.Errf(pipeline.CodeAttachmentParent, "no container note for directory %s", f.Meta("dir")),
		}
	}

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

	body := info.Body
	if st.opts.WikiLinkMode == "markdown" {
		body = content.ConvertWikiLinks(body)
	}

	htmlBody := content.MarkdownToHTML(body)

	noteID, updated, skipped, opErr := pipeline.UpsertNote(ctx, st.repo, parentID, info.Title, htmlBody, st.opts.Duplicates)
	if opErr != nil {
		return pipeline.FileResult{Path: f.RelPath, Err: opErr}
	}

	key := strings.TrimSuffix(f.RelPath, f.Ext)
	st.mu.Lock()
	st.pageNotes[filepath.ToSlash(key)] = noteID
	if skipped {
		// nothing created
	} else if updated {
		st.updatedIDs = append(st.updatedIDs, noteID)
	} else {
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

	if !updated {
		for _, tag := range info.Tags {
			if _, err := st.repo.CreateAttribute(ctx, notesrv.Attribute{
				NoteID: noteID,
				Type:   "label",
				Name:   tag,
			}); err != nil {
				st.collector.Warn("vault: couldn't attach tag %q to %s: %v", tag, noteID, err)
			}
		}
	}

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: noteID}
}

func (st *importState) importAttachment(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
	ownerID, ok := st.parentFor(f)
	if !ok {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.Errf(pipeline.CodeAttachmentParent, "no owning note for attachment %s", f.RelPath),
		}
	}

	data, err := st.resolver.ReadFile(f.RelPath)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", f.RelPath),
		}
	}

	if sum := f.Meta("sha256"); sum != "" && sum != pipeline.Checksum(data) {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.Errf(pipeline.CodeChecksumFailure, "attachment %s changed between scan and import", f.RelPath),
		}
	}

	role := "file"
	if pipeline.IsImageExt(f.Ext) {
		role = "image"
	}

	created, err := st.repo.CreateAttachment(ctx, notesrv.CreateAttachmentRequest{
		OwnerID: ownerID,
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

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: ownerID}
}
