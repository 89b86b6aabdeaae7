package gitsnap

import (
	"context"
	"fmt"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/safepath"
)

// Syncer runs a two-way pass over the working tree: local Markdown files go
// into the note repository, the repository's notes come back out, and the
// result is committed.  Files with uncommitted local changes are reported as
// conflicts and left alone.
type Syncer struct {
	importer *Importer
	exporter *Exporter
}

func NewSyncer(loader *capability.Loader) *Syncer {
	return &Syncer{
		importer: NewImporter(loader),
		exporter: NewExporter(loader),
	}
}

func (s *Syncer) Format() string { return FormatName }

// Validate shares the importer's checks: the path must be a git work tree.
func (s *Syncer) Validate(opts *pipeline.Options) error {
	return s.importer.Validate(opts)
}

func (s *Syncer) Sync(ctx context.Context, repo pipeline.Repository, opts *pipeline.Options, op *pipeline.OperationContext) (*pipeline.SyncResult, error) {
	if err := s.Validate(opts); err != nil {
		return nil, err
	}

	r, err := openRepo(opts.Path)
	if err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}
	if err := r.checkoutBranch(opts.Git.Branch); err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("branch", opts.Git.Branch)
	}

	// Conflicts are decided up front: anything dirty before the sync stays
	// untouched by the export below.
	conflicts, err := r.dirtyPaths()
	if err != nil {
		return nil, pipeline.WrapErr(pipeline.CodeVCSFailure, err).WithDetail("path", opts.Path)
	}
	conflictSet := map[string]bool{}
	for _, c := range conflicts {
		conflictSet[c] = true
	}

	files, err := s.importer.Scan(ctx, opts, op)
	if err != nil {
		return nil, err
	}

	imported, err := s.importer.Import(ctx, repo, files, opts, op)
	if err != nil {
		return nil, err
	}

	result := &pipeline.SyncResult{
		Format:     FormatName,
		CreatedIDs: imported.CreatedIDs,
		UpdatedIDs: imported.UpdatedIDs,
		Conflicts:  conflicts,
	}

	if opts.DryRun {
		result.Summary = imported.Summary
		return result, nil
	}

	plan, err := s.exporter.Plan(ctx, repo, []string{opts.ParentNoteID}, opts, op)
	if err != nil {
		return nil, err
	}

	collector := pipeline.NewErrorCollector()
	for _, e := range imported.Summary.Errors {
		e := e
		collector.Add(&e)
	}

	resolver, err := safepath.NewResolver(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("gitsnap: couldn't build path resolver: %w", err)
	}

	tracker := pipeline.NewProgressTracker(op, "sync", len(plan))
	tracker.Start(fmt.Sprintf("syncing %d notes to %s", len(plan), opts.Path))

	results := make([]pipeline.FileResult, 0, len(plan))
	for _, f := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracker.Step(f.RelPath)

		if conflictSet[f.RelPath] {
			results = append(results, pipeline.FileResult{
				Path:       f.RelPath,
				Skipped:    true,
				SkipReason: "uncommitted local changes",
			})
			continue
		}

		fr := s.exporter.exportOne(ctx, repo, resolver, f)
		if fr.Err != nil {
			collector.Add(fr.Err)
		} else if !fr.Skipped {
			result.ExportedPaths = append(result.ExportedPaths, f.RelPath)
		}
		results = append(results, fr)
	}

	if opts.Git.AutoCommit {
		message := opts.Git.Message
		if message == "" {
			message = fmt.Sprintf("noteport sync of %d notes", len(result.ExportedPaths))
		}
		hash, err := r.commitAll(message, opts.Git)
		if err != nil {
			collector.Add(pipeline.WrapErr(pipeline.CodeVCSFailure, err))
		} else {
			result.CommitHash = hash
		}
	}

	tracker.Complete("sync finished")
	result.Summary = pipeline.BuildSummary(plan, results, collector, op.StartedAt)

	return result, nil
}
