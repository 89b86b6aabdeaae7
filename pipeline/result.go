package pipeline

import "time"

// FileResult is the outcome of processing one FileInfo.
type FileResult struct {
	Path       string            `json:"path"`
	Success    bool              `json:"success"`
	Skipped    bool              `json:"skipped,omitempty"`
	SkipReason string            `json:"skipReason,omitempty"`
	NoteID     string            `json:"noteId,omitempty"`
	Err        *OpError          `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Summary carries the counts every operation reports, successful or not.
// Callers never need to catch an error to learn how many of N items failed.
type Summary struct {
	TotalFiles      int `json:"totalFiles"`
	ProcessedFiles  int `json:"processedFiles"`
	SuccessfulFiles int `json:"successfulFiles"`
	FailedFiles     int `json:"failedFiles"`
	SkippedFiles    int `json:"skippedFiles"`

	TotalBytes     int64 `json:"totalBytes"`
	ProcessedBytes int64 `json:"processedBytes"`

	Errors   []OpError `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`

	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
}

// maxErrorSample bounds how many collected errors end up in a summary.
const maxErrorSample = 25

// BuildSummary assembles a Summary from per-file results and the collector.
func BuildSummary(files []FileInfo, results []FileResult, collector *ErrorCollector, startedAt time.Time) Summary {
	s := Summary{
		TotalFiles: len(files),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	s.Duration = s.FinishedAt.Sub(s.StartedAt)

	for _, f := range files {
		s.TotalBytes += f.Size
	}

	for i, r := range results {
		s.ProcessedFiles++
		switch {
		case r.Skipped:
			s.SkippedFiles++
		case r.Success:
			s.SuccessfulFiles++
			if i < len(files) {
				s.ProcessedBytes += files[i].Size
			}
		default:
			s.FailedFiles++
		}
	}

	if collector != nil {
		s.Errors = collector.Sample(maxErrorSample)
		s.Warnings = collector.Warnings()
	}

	return s
}

// DryRunImportResult marks every file "would import" without performing any
// write; used by all import handlers when opts.DryRun is set.
func DryRunImportResult(format string, files []FileInfo, op *OperationContext) *ImportResult {
	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i] = FileResult{
			Path:     f.RelPath,
			Success:  true,
			Metadata: map[string]string{"dryRun": "would-import"},
		}
	}

	return &ImportResult{
		Format:  format,
		Summary: BuildSummary(files, results, nil, op.StartedAt),
		Files:   results,
	}
}

// ImportResult is what an import operation hands back to the caller.
type ImportResult struct {
	Format  string       `json:"format"`
	Summary Summary      `json:"summary"`
	Files   []FileResult `json:"files"`

	// Repository ids of successfully created notes, in creation order.
	CreatedIDs []string `json:"createdIds,omitempty"`
	// Repository ids of notes updated due to duplicate handling.
	UpdatedIDs    []string `json:"updatedIds,omitempty"`
	AttachmentIDs []string `json:"attachmentIds,omitempty"`
}

// ExportResult is what an export operation hands back to the caller.
type ExportResult struct {
	Format  string       `json:"format"`
	Summary Summary      `json:"summary"`
	Files   []FileResult `json:"files"`

	ExportedPaths []string `json:"exportedPaths,omitempty"`
	// Set by archive-producing formats once the archive is finalized.
	ArchivePath string `json:"archivePath,omitempty"`
	// Set by the version-control snapshot format when auto-commit is on.
	CommitHash string `json:"commitHash,omitempty"`
}

// SyncResult is what a two-way sync (version-control snapshot) hands back.
type SyncResult struct {
	Format  string  `json:"format"`
	Summary Summary `json:"summary"`

	CreatedIDs    []string `json:"createdIds,omitempty"`
	UpdatedIDs    []string `json:"updatedIds,omitempty"`
	ExportedPaths []string `json:"exportedPaths,omitempty"`
	Conflicts     []string `json:"conflicts,omitempty"`
	CommitHash    string   `json:"commitHash,omitempty"`
}
