package pagearchive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/content"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

const maxTreeDepth = 20

type Exporter struct {
	loader *capability.Loader
	chain  *content.Chain
	fm     capability.FrontMatter
}

func NewExporter(loader *capability.Loader) *Exporter {
	fm := loader.FrontMatterCodec()
	return &Exporter{loader: loader, chain: content.NewChain(fm), fm: fm}
}

func (ex *Exporter) Format() string { return FormatName }

func (ex *Exporter) Describe() string {
	return "zipped page archive with block-structured pages and nested children"
}

func (ex *Exporter) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	if ext := strings.ToLower(filepath.Ext(opts.Path)); ext != ".zip" {
		return pipeline.Errf(pipeline.CodeBadConfig, "archive path %s: unsupported extension %q", opts.Path, ext)
	}

	dir := filepath.Dir(opts.Path)
	stat, err := os.Stat(dir)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "destination directory %s: %v", dir, err)
	}
	if !stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "destination %s is not a directory", dir)
	}

	return nil
}

// Plan walks the repository tree and describes every archive entry the
// export would write.  Page file names carry the note id so a later import
// can round-trip them.
func (ex *Exporter) Plan(ctx context.Context, repo pipeline.Repository, ids []string, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	files := []pipeline.FileInfo{}
	seen := map[string]bool{}

	var walk func(id string, dir string, depth int) error
	walk = func(id string, dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth > maxTreeDepth {
			return fmt.Errorf("pagearchive: note tree exceeds depth %d at %s", maxTreeDepth, id)
		}
		if seen[id] {
			return nil
		}
		seen[id] = true

		note, err := repo.GetNote(ctx, id)
		if err != nil {
			return fmt.Errorf("pagearchive: couldn't fetch note %s: %w", id, err)
		}

		stem := pipeline.SlugOr(note.Title, id) + " " + entryID(id)
		rel := path.Join(dir, stem+".md")

		files = append(files, pipeline.FileInfo{
			Path:    id,
			RelPath: rel,
			Name:    path.Base(rel),
			Ext:     ".md",
			Depth:   depth,
			Metadata: map[string]string{
				"kind":   "page",
				"noteId": id,
				"title":  note.Title,
				"type":   note.Type,
			},
		})

		if opts.IncludeAttachments {
			attachments, err := repo.GetAttachments(ctx, id)
			if err != nil {
				return fmt.Errorf("pagearchive: couldn't list attachments of %s: %w", id, err)
			}
			for _, att := range attachments {
				name := att.Title
				if name == "" {
					name = att.AttachmentID
				}
				files = append(files, pipeline.FileInfo{
					Path:    att.AttachmentID,
					RelPath: path.Join(dir, stem, name),
					Name:    name,
					Ext:     strings.ToLower(path.Ext(name)),
					Size:    att.ContentLength,
					Depth:   depth + 1,
					Metadata: map[string]string{
						"kind":         "attachment",
						"attachmentId": att.AttachmentID,
						"ownerId":      id,
					},
				})
			}
		}

		// children always nest under the page's directory so the importer
		// can rebuild the hierarchy from paths alone
		childDir := path.Join(dir, stem)
		for _, childID := range note.ChildNoteIDs {
			if err := walk(childID, childDir, depth+1); err != nil {
				return err
			}
		}

		return nil
	}

	for _, id := range ids {
		if err := walk(id, "", 0); err != nil {
			return nil, err
		}
	}

	return files, nil
}

func (ex *Exporter) Export(ctx context.Context, repo pipeline.Repository, ids []string, opts *pipeline.Options, op *pipeline.OperationContext) (*pipeline.ExportResult, error) {
	files, err := ex.Plan(ctx, repo, ids, opts, op)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		results := make([]pipeline.FileResult, len(files))
		for i, f := range files {
			results[i] = pipeline.FileResult{
				Path:     f.RelPath,
				Success:  true,
				Metadata: map[string]string{"dryRun": "would-export"},
			}
		}
		return &pipeline.ExportResult{
			Format:      FormatName,
			Summary:     pipeline.BuildSummary(files, results, nil, op.StartedAt),
			Files:       results,
			ArchivePath: opts.Path,
		}, nil
	}

	// Stage everything under the operation's temp dir, then zip the staged
	// tree in one go.
	stage, err := safepath.NewResolver(op.TempDir)
	if err != nil {
		return nil, fmt.Errorf("pagearchive: couldn't build staging resolver: %w", err)
	}

	collector := pipeline.NewErrorCollector()
	tracker := pipeline.NewProgressTracker(op, "export", len(files))
	tracker.Start(fmt.Sprintf("staging %d entries for %s", len(files), opts.Path))

	exported := []string{}
	results := make([]pipeline.FileResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := ex.exportOne(ctx, repo, stage, f)
		tracker.Step(f.RelPath)
		if r.Err != nil {
			collector.Add(r.Err)
		} else if !r.Skipped {
			exported = append(exported, f.RelPath)
		}
		results = append(results, r)
	}

	_, writer := ex.loader.Archive()
	if err := writer.Create(opts.Path, stage.Root()); err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeArchiveWrite, err).WithDetail("archive", opts.Path)
	}

	tracker.Complete("export finished")

	return &pipeline.ExportResult{
		Format:        FormatName,
		Summary:       pipeline.BuildSummary(files, results, collector, op.StartedAt),
		Files:         results,
		ExportedPaths: exported,
		ArchivePath:   opts.Path,
	}, nil
}

func (ex *Exporter) exportOne(ctx context.Context, repo pipeline.Repository, stage *safepath.Resolver, f pipeline.FileInfo) pipeline.FileResult {
	if f.IsAttachment() {
		return ex.exportAttachment(ctx, repo, stage, f)
	}

	id := f.Meta("noteId")

	body, err := repo.GetNoteContent(ctx, id)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeRepositoryCall, err).WithDetail("noteId", id),
		}
	}

	markdown := string(body)
	if f.Meta("type") == "text" || f.Meta("type") == "" {
		parsed, err := ex.chain.Parse(body, id+".html")
		if err != nil {
			return pipeline.FileResult{
				Path: f.RelPath,
				Err:  pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("noteId", id),
			}
		}
		markdown = parsed.Body
	}

	blocks := ParseBlocks(markdown)

	header, err := ex.fm.Render(map[string]any{
		"title":  f.Meta("title"),
		"noteId": id,
	})
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("noteId", id),
		}
	}

	rendered := string(header) + RenderBlocks(blocks)

	if err := stage.WriteFile(f.RelPath, []byte(rendered)); err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileWrite, err).WithDetail("path", f.RelPath),
		}
	}

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: id}
}

func (ex *Exporter) exportAttachment(ctx context.Context, repo pipeline.Repository, stage *safepath.Resolver, f pipeline.FileInfo) pipeline.FileResult {
	id := f.Meta("attachmentId")

	data, err := repo.GetAttachmentContent(ctx, id)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeRepositoryCall, err).WithDetail("attachmentId", id),
		}
	}

	if err := stage.WriteFile(f.RelPath, data); err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileWrite, err).WithDetail("path", f.RelPath),
		}
	}

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: f.Meta("ownerId")}
}

// entryID flattens a repository note id into the 32-hex token embedded in
// archive file names.
func entryID(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
			return r
		case r >= 'A' && r <= 'F':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, id)
	if len(clean) == 32 {
		return clean
	}
	return extractID("synthetic/" + id + ".md")
}
