package gitsnap

import (
	"context"
	"fmt"
	"path"
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
	return "git working tree of Markdown notes, synced with commits"
}

func (ex *Exporter) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	if _, err := openRepo(opts.Path); err != nil {
		return pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}

	return nil
}

// Plan walks the repository tree and describes the Markdown files the export
// would write into the working tree.
func (ex *Exporter) Plan(ctx context.Context, repo pipeline.Repository, ids []string, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	files := []pipeline.FileInfo{}
	seen := map[string]bool{}

	var walk func(id string, dir string, depth int) error
	walk = func(id string, dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth > maxTreeDepth {
			return fmt.Errorf("gitsnap: note tree exceeds depth %d at %s", maxTreeDepth, id)
		}
		if seen[id] {
			return nil
		}
		seen[id] = true

		note, err := repo.GetNote(ctx, id)
		if err != nil {
			return fmt.Errorf("gitsnap: couldn't fetch note %s: %w", id, err)
		}

		slug := pipeline.SlugOr(note.Title, id)
		rel := path.Join(dir, slug+".md")

		files = append(files, pipeline.FileInfo{
			Path:    id,
			RelPath: rel,
			Name:    slug + ".md",
			Ext:     ".md",
			Depth:   depth,
			Metadata: map[string]string{
				"kind":   "note",
				"noteId": id,
				"title":  note.Title,
				"type":   note.Type,
			},
		})

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
	r, err := openRepo(opts.Path)
	if err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}
	if err := r.checkoutBranch(opts.Git.Branch); err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("branch", opts.Git.Branch)
	}

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
		return nil, fmt.Errorf("gitsnap: couldn't build path resolver: %w", err)
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

	result := &pipeline.ExportResult{
		Format:        FormatName,
		Files:         results,
		ExportedPaths: exported,
	}

	if opts.Git.AutoCommit {
		message := opts.Git.Message
		if message == "" {
			message = fmt.Sprintf("noteport export of %d notes", len(exported))
		}
		hash, err := r.commitAll(message, opts.Git)
		if err != nil {
			collector.Add(pipeline.WrapErr(pipeline.CodeVCSFailure, err))
		} else {
			result.CommitHash = hash
		}
	}

	tracker.Complete("export finished")
	result.Summary = pipeline.BuildSummary(files, results, collector, op.StartedAt)

	return result, nil
}

func (ex *Exporter) exportOne(ctx context.Context, repo pipeline.Repository, resolver *safepath.Resolver, f pipeline.FileInfo) pipeline.FileResult {
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
