package dirtree

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/content"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

const maxTreeDepth = 20

type Exporter struct {
	chain *content.Chain
}

func NewExporter(loader *capability.Loader) *Exporter {
	return &Exporter{chain: content.NewChain(loader.FrontMatterCodec())}
}

func (ex *Exporter) Format() string { return FormatName }

func (ex *Exporter) Describe() string {
	return "plain directory of documents matched by glob patterns"
}

func (ex *Exporter) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	stat, err := os.Stat(opts.Path)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "destination %s: %v", opts.Path, err)
	}
	if !stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "destination %s is not a directory", opts.Path)
	}

	return nil
}

// Plan describes the files the export would write.  Notes become slug-named
// Markdown files; with PreserveStructure children go into a subdirectory per
// parent, otherwise everything is flattened with duplicate slugs suffixed.
func (ex *Exporter) Plan(ctx context.Context, repo pipeline.Repository, ids []string, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	files := []pipeline.FileInfo{}
	seen := map[string]bool{}
	taken := map[string]int{}

	claim := func(dir, slug string) string {
		key := path.Join(dir, slug)
		n := taken[key]
		taken[key] = n + 1
		if n == 0 {
			return path.Join(dir, slug+".md")
		}
		return path.Join(dir, fmt.Sprintf("%s-%d.md", slug, n))
	}

	var walk func(id string, dir string, depth int) error
	walk = func(id string, dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth > maxTreeDepth {
			return fmt.Errorf("dirtree: note tree exceeds depth %d at %s", maxTreeDepth, id)
		}
		if seen[id] {
			return nil
		}
		seen[id] = true

		note, err := repo.GetNote(ctx, id)
		if err != nil {
			return fmt.Errorf("dirtree: couldn't fetch note %s: %w", id, err)
		}

		slug := pipeline.SlugOr(note.Title, id)
		rel := claim(dir, slug)

		files = append(files, pipeline.FileInfo{
			Path:    id,
			RelPath: rel,
			Name:    path.Base(rel),
			Ext:     ".md",
			Depth:   depth,
			Metadata: map[string]string{
				"kind":   "note",
				"noteId": id,
				"title":  note.Title,
				"type":   note.Type,
			},
		})

		if opts.IncludeAttachments {
			attachments, err := repo.GetAttachments(ctx, id)
			if err != nil {
				return fmt.Errorf("dirtree: couldn't list attachments of %s: %w", id, err)
			}
			for _, att := range attachments {
				name := att.Title
				if name == "" {
					name = att.AttachmentID
				}
				files = append(files, pipeline.FileInfo{
					Path:    att.AttachmentID,
					RelPath: path.Join(dir, slug, name),
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

		childDir := dir
		if opts.PreserveStructure && len(note.ChildNoteIDs) > 0 {
			childDir = path.Join(dir, slug)
		}
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
			Format:  FormatName,
			Summary: pipeline.BuildSummary(files, results, nil, op.StartedAt),
			Files:   results,
		}, nil
	}

	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("dirtree: couldn't build path resolver: %w", err)
	}

	collector := pipeline.NewErrorCollector()
	tracker := pipeline.NewProgressTracker(op, "export", len(files))
	tracker.Start(fmt.Sprintf("exporting %d files to %s", len(files), opts.Path))

	var mu sync.Mutex
	exported := []string{}

	results := make([]pipeline.FileResult, 0, len(files))
	for _, chunk := range pipeline.Chunk(files, opts.BatchSize) {
		chunkResults, err := pipeline.RunBatch(ctx, chunk, opts.Concurrency, func(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
			r := ex.exportOne(ctx, repo, resolver, f)
			tracker.Step(f.RelPath)
			if r.Err != nil {
				collector.Add(r.Err)
			} else if !r.Skipped {
				mu.Lock()
				exported = append(exported, f.RelPath)
				mu.Unlock()
			}
			return r
		})
		if err != nil {
			return nil, err
		}
		results = append(results, chunkResults...)
	}

	tracker.Complete("export finished")

	return &pipeline.ExportResult{
		Format:        FormatName,
		Summary:       pipeline.BuildSummary(files, results, collector, op.StartedAt),
		Files:         results,
		ExportedPaths: exported,
	}, nil
}

func (ex *Exporter) exportOne(ctx context.Context, repo pipeline.Repository, resolver *safepath.Resolver, f pipeline.FileInfo) pipeline.FileResult {
	if f.IsAttachment() {
		id := f.Meta("attachmentId")
		data, err := repo.GetAttachmentContent(ctx, id)
		if err != nil {
			return pipeline.FileResult{
				Path: f.RelPath,
				Err:  pipeline.WrapErr(pipeline.CodeRepositoryCall, err).WithDetail("attachmentId", id),
			}
		}
		if err := resolver.WriteFile(f.RelPath, data); err != nil {
			return pipeline.FileResult{
				Path: f.RelPath,
				Err:  pipeline.WrapErr(pipeline.CodeFileWrite, err).WithDetail("path", f.RelPath),
			}
		}
		return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: f.Meta("ownerId")}
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

	info := &content.ContentInfo{
		Type:  content.TypeMarkdown,
		Title: f.Meta("title"),
		Body:  markdown,
	}

	rendered, err := ex.chain.Format(info, string(content.TypeMarkdown))
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("noteId", id),
		}
	}

	if err := resolver.WriteFile(f.RelPath, []byte(rendered)); err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileWrite, err).WithDetail("path", f.RelPath),
		}
	}

	return pipeline.FileResult{Path: f.RelPath, Success: true, NoteID: id}
}
