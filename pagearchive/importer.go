// Package pagearchive moves zipped page archives (block-structured pages
// with ids embedded in their file names, children nested in a directory
// named after the parent page) in and out of the note repository.
package pagearchive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/content"
	"github.com/noteport/noteport/notesrv"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

const FormatName = "pagearchive"

type Importer struct {
	loader *capability.Loader
	fm     capability.FrontMatter
}

func NewImporter(loader *capability.Loader) *Importer {
	return &Importer{loader: loader, fm: loader.FrontMatterCodec()}
}

func (im *Importer) Format() string { return FormatName }

func (im *Importer) Describe() string {
	return "zipped page archive with block-structured pages and nested children"
}

func (im *Importer) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	stat, err := os.Stat(opts.Path)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "archive %s: %v", opts.Path, err)
	}
	if stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "archive path %s is a directory, expected a zip file", opts.Path)
	}
	if ext := strings.ToLower(filepath.Ext(opts.Path)); ext != ".zip" {
		return pipeline.Errf(pipeline.CodeBadConfig, "archive path %s: unsupported extension %q", opts.Path, ext)
	}

	switch opts.BlockMode {
	case "strict", "loose":
	default:
		return pipeline.Errf(pipeline.CodeBadConfig, "unknown block mode %q", opts.BlockMode)
	}

	return nil
}

// Scan lists the archive's entries without extracting anything.
func (im *Importer) Scan(ctx context.Context, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	reader, _ := im.loader.Archive()

	entries, err := reader.List(opts.Path)
	if err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeArchiveExtraction, err).WithDetail("archive", opts.Path)
	}

	files := []pipeline.FileInfo{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind := classifyEntry(e.Name, e.Dir)
		if kind == "" {
			continue
		}
		if kind == "attachment" && !opts.IncludeAttachments {
			continue
		}

		files = append(files, pipeline.FileInfo{
			Path:    e.Name,
			RelPath: e.Name,
			Name:    path.Base(e.Name),
			Ext:     strings.ToLower(path.Ext(e.Name)),
			Size:    e.Size,
			ModTime: e.Modified,
			Depth:   strings.Count(e.Name, "/"),
			Metadata: map[string]string{
				"kind": kind,
				"dir":  path.Dir(e.Name),
			},
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func (im *Importer) Import(ctx context.Context, repo pipeline.Repository, files []pipeline.FileInfo, opts *pipeline.Options, op *pipeline.OperationContext) (*pipeline.ImportResult, error) {
	if opts.DryRun {
		return pipeline.DryRunImportResult(FormatName, files, op), nil
	}

	dest, err := safepath.NewResolver(op.TempDir)
	if err != nil {
		return nil, fmt.Errorf("pagearchive: couldn't build extraction resolver: %w", err)
	}

	reader, _ := im.loader.Archive()
	if _, err := reader.Extract(opts.Path, dest); err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeArchiveExtraction, err).WithDetail("archive", opts.Path)
	}

	collector := pipeline.NewErrorCollector()

	pages := []*Page{}
	attachments := []string{}
	results := map[string]pipeline.FileResult{}

	for _, f := range files {
		if f.IsAttachment() {
			attachments = append(attachments, f.RelPath)
			continue
		}

		data, err := dest.ReadFile(f.RelPath)
		if err != nil {
			opErr := pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", f.RelPath)
			collector.Add(opErr)
			results[f.RelPath] = pipeline.FileResult{Path: f.RelPath, Err: opErr}
			continue
		}

		page, err := ParsePage(f.RelPath, data, im.fm)
		if err != nil {
			opErr := pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("path", f.RelPath)
			collector.Add(opErr)
			results[f.RelPath] = pipeline.FileResult{Path: f.RelPath, Err: opErr}
			continue
		}
		pages = append(pages, page)
	}

	tree := BuildTree(pages, attachments)

	tracker := pipeline.NewProgressTracker(op, "import", len(files))
	tracker.Start(fmt.Sprintf("importing %d entries from %s", len(files), opts.Path))

	st := &archiveImport{
		repo:      repo,
		opts:      opts,
		collector: collector,
		noteIDs:   map[string]string{},
	}

	// Pages walk parent-first, so a child's owning note always exists by the
	// time the child is created.  A failed parent poisons its subtree.
	failedSubtree := map[string]bool{}
	_ = tree.Walk(func(p *Page) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		tracker.Step(p.Path)

		if p.ParentID != "" && failedSubtree[p.ParentID] {
			failedSubtree[p.ID] = true
			opErr := pipeline.Errf(pipeline.CodeAttachmentParent, "parent page %s failed, skipping %s", p.ParentID, p.Path)
			collector.Add(opErr)
			results[p.Path] = pipeline.FileResult{Path: p.Path, Err: opErr}
			return nil
		}

		res := st.importPage(ctx, p)
		if res.Err != nil {
			failedSubtree[p.ID] = true
			collector.Add(res.Err)
		}
		results[p.Path] = res
		return nil
	})

	// Attachments after their owning pages.
	for _, p := range tree.Pages {
		ownerID := st.noteIDs[p.ID]
		for _, att := range p.Attachments {
			if err := ctx.Err(); err != nil {
				break
			}
			tracker.Step(att)
			if ownerID == "" {
				opErr := pipeline.Errf(pipeline.CodeAttachmentParent, "no imported page owns attachment %s", att)
				collector.Add(opErr)
				results[att] = pipeline.FileResult{Path: att, Err: opErr}
				continue
			}
			results[att] = st.importAttachment(ctx, dest, ownerID, att)
			if r := results[att]; r.Err != nil {
				collector.Add(r.Err)
			}
		}
	}

	tracker.Complete("import finished")

	ordered := make([]pipeline.FileResult, 0, len(files))
	for _, f := range files {
		r, ok := results[f.RelPath]
		if !ok {
			r = pipeline.FileResult{
				Path:       f.RelPath,
				Skipped:    true,
				SkipReason: "entry had no owning page",
			}
		}
		ordered = append(ordered, r)
	}

	return &pipeline.ImportResult{
		Summary:       pipeline.BuildSummary(files, ordered, collector, op.StartedAt),
		Files:         ordered,
		CreatedIDs:    st.createdIDs,
		UpdatedIDs:    st.updatedIDs,
		AttachmentIDs: st.attachmentIDs,
	}, nil
}

// archiveImport carries the shared state of one archive import.  The walk is
// sequential, so no locking is needed.
type archiveImport struct {
	repo      pipeline.Repository
	opts      *pipeline.Options
	collector *pipeline.ErrorCollector

	noteIDs       map[string]string // archive page id -> repository note id
	createdIDs    []string
	updatedIDs    []string
	attachmentIDs []string
}

func (st *archiveImport) importPage(ctx context.Context, p *Page) pipeline.FileResult {
	parentID := st.opts.ParentNoteID
	if p.ParentID != "" {
		id, ok := st.noteIDs[p.ParentID]
		if !ok {
			return pipeline.FileResult{
				Path: p.Path,
				Err:  pipeline.Errf(pipeline.CodeAttachmentParent, "parent page %s not imported before %s", p.ParentID, p.Path),
			}
		}
		parentID = id
	}

	blocks := p.Blocks
	if st.opts.BlockMode == "strict" {
		blocks = make([]Block, len(p.Blocks))
		for i, b := range p.Blocks {
			b.Text = StripUnknownInline(b.Text)
			blocks[i] = b
		}
	}

	htmlBody := content.MarkdownToHTML(BlocksToMarkdown(blocks))

	noteID, updated, skipped, opErr := pipeline.UpsertNote(ctx, st.repo, parentID, p.Title, htmlBody, st.opts.Duplicates)
	if opErr != nil {
		return pipeline.FileResult{Path: p.Path, Err: opErr}
	}

	st.noteIDs[p.ID] = noteID

	if skipped {
		return pipeline.FileResult{
			Path:       p.Path,
			Skipped:    true,
			SkipReason: "duplicate title under parent",
			NoteID:     noteID,
		}
	}

	if updated {
		st.updatedIDs = append(st.updatedIDs, noteID)
	} else {
		st.createdIDs = append(st.createdIDs, noteID)

		for _, k := range sortedProps(p.Props) {
			if k == "title" {
				continue
			}
			if _, err := st.repo.CreateAttribute(ctx, notesrv.Attribute{
				NoteID: noteID,
				Type:   "label",
				Name:   k,
				Value:  p.Props[k],
			}); err != nil {
				st.collector.Warn("pagearchive: couldn't attach property %q to %s: %v", k, noteID, err)
			}
		}
	}

	return pipeline.FileResult{Path: p.Path, Success: true, NoteID: noteID}
}

func (st *archiveImport) importAttachment(ctx context.Context, dest *safepath.Resolver, ownerID, relPath string) pipeline.FileResult {
	data, err := dest.ReadFile(relPath)
	if err != nil {
		return pipeline.FileResult{
			Path: relPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", relPath),
		}
	}

	ext := strings.ToLower(path.Ext(relPath))
	role := "file"
	if pipeline.IsImageExt(ext) {
		role = "image"
	}

	created, err := st.repo.CreateAttachment(ctx, notesrv.CreateAttachmentRequest{
		OwnerID: ownerID,
		Role:    role,
		Mime:    pipeline.MimeByExt(ext),
		Title:   path.Base(relPath),
		Content: string(data),
	})
	if err != nil {
		return pipeline.FileResult{
			Path: relPath,
			Err:  pipeline.WrapErr(pipeline.CodeRepositoryCall, err).WithDetail("path", relPath),
		}
	}

	st.attachmentIDs = append(st.attachmentIDs, created.AttachmentID)
	return pipeline.FileResult{Path: relPath, Success: true, NoteID: ownerID}
}
