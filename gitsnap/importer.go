package gitsnap

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
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

type Importer struct {
	chain *content.Chain
}

func NewImporter(loader *capability.Loader) *Importer {
	return &Importer{chain: content.NewChain(loader.FrontMatterCodec())}
}

func (im *Importer) Format() string { return FormatName }

func (im *Importer) Describe() string {
	return "git working tree of Markdown notes, synced with commits"
}

func (im *Importer) Validate(opts *pipeline.Options) error {
	opts.Normalize()
	if err := opts.ValidateCommon(); err != nil {
		return err
	}

	stat, err := os.Stat(opts.Path)
	if err != nil {
		return pipeline.Errf(pipeline.CodeMissingSource, "working tree %s: %v", opts.Path, err)
	}
	if !stat.IsDir() {
		return pipeline.Errf(pipeline.CodeBadConfig, "working tree %s is not a directory", opts.Path)
	}

	if _, err := openRepo(opts.Path); err != nil {
		return pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}

	return nil
}

// Scan enumerates Markdown files in the working tree, never descending into
// the .git directory.
func (im *Importer) Scan(ctx context.Context, opts *pipeline.Options, op *pipeline.OperationContext) ([]pipeline.FileInfo, error) {
	r, err := openRepo(opts.Path)
	if err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}
	if err := r.checkoutBranch(opts.Git.Branch); err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("branch", opts.Git.Branch)
	}

	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("gitsnap: couldn't build path resolver: %w", err)
	}

	files := []pipeline.FileInfo{}

	err = filepath.WalkDir(resolver.Root(), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("gitsnap: error during file tree walk: %w", walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}

		rel, err := resolver.Rel(path)
		if err != nil {
			return err
		}

		stat, err := d.Info()
		if err != nil {
			return fmt.Errorf("gitsnap: couldn't stat %s: %w", path, err)
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
				"kind": "page",
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
		return nil, fmt.Errorf("gitsnap: couldn't build path resolver: %w", err)
	}

	collector := pipeline.NewErrorCollector()
	tracker := pipeline.NewProgressTracker(op, "import", len(files))
	tracker.Start(fmt.Sprintf("importing %d files from %s", len(files), opts.Path))

	var mu sync.Mutex
	createdIDs := []string{}
	updatedIDs := []string{}

	results := make([]pipeline.FileResult, 0, len(files))
	for _, chunk := range pipeline.Chunk(files, opts.BatchSize) {
		chunkResults, err := pipeline.RunBatch(ctx, chunk, opts.Concurrency, func(ctx context.Context, f pipeline.FileInfo) pipeline.FileResult {
			r := im.importPage(ctx, repo, resolver, f, opts, &mu, &createdIDs, &updatedIDs)
			tracker.Step(f.RelPath)
			if r.Err != nil {
				collector.Add(r.Err)
			}
			return r
		})
		if err != nil {
			return nil, err
		}
		results = append(results, chunkResults...)
	}

	tracker.Complete("import finished")

	return &pipeline.ImportResult{
		Summary:    pipeline.BuildSummary(files, results, collector, op.StartedAt),
		Files:      results,
		CreatedIDs: createdIDs,
		UpdatedIDs: updatedIDs,
	}, nil
}

func (im *Importer) importPage(ctx context.Context, repo pipeline.Repository, resolver *safepath.Resolver, f pipeline.FileInfo, opts *pipeline.Options, mu *sync.Mutex, createdIDs, updatedIDs *[]string) pipeline.FileResult {
	data, err := resolver.ReadFile(f.RelPath)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeFileRead, err).WithDetail("path", f.RelPath),
		}
	}

	info, err := im.chain.Parse(data, f.Name)
	if err != nil {
		return pipeline.FileResult{
			Path: f.RelPath,
			Err:  pipeline.WrapErr(pipeline.CodeParseFailure, err).WithDetail("path", f.RelPath),
		}
	}

	htmlBody := content.MarkdownToHTML(info.Body)

	noteID, updated, skipped, opErr := pipeline.UpsertNote(ctx, repo, opts.ParentNoteID, info.Title, htmlBody, opts.Duplicates)
	if opErr != nil {
		return pipeline.FileResult{Path: f.RelPath, Err: opErr}
	}

	mu.Lock()
	if updated {
		*updatedIDs = append(*updatedIDs, noteID)
	} else if !skipped {
		*createdIDs = append(*createdIDs, noteID)
	}
	mu.Unlock()

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
