package main

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/noteport/noteport/pipeline"
)

var (
	FormatFlag        string
	PathFlag          string
	ParentFlag        string
	DryRun            bool
	Duplicates        string
	PreserveStructure bool
	WithAttachments   bool
	BatchSize         int
	Concurrency       int
	WithVCR           bool
	WikiLinks         string
	BlockMode         string
	Patterns          []string
	Recursive         bool
	GitBranch         string
	GitAuthorName     string
	GitAuthorEmail    string
	GitMessage        string
	AutoCommit        bool
)

// addOperationFlags attaches the flags shared by import, export, sync and
// scan.  Format-specific flags are harmless on formats that ignore them.
func addOperationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&FormatFlag, "format", "", "format handler to use (see 'noteport formats')")
	cmd.Flags().StringVar(&PathFlag, "path", "", "source directory/archive for import, destination for export")
	cmd.Flags().StringVar(&ParentFlag, "parent", "root", "note id to import under")
	cmd.Flags().BoolVarP(&DryRun, "dry-run", "n", false, "report what would happen without writing anything")
	cmd.Flags().StringVar(&Duplicates, "duplicates", "skip", "duplicate handling: skip, overwrite or merge")
	cmd.Flags().BoolVar(&PreserveStructure, "preserve-structure", false, "mirror the directory hierarchy as container notes")
	cmd.Flags().BoolVar(&WithAttachments, "with-attachments", false, "include attachments")
	cmd.Flags().IntVar(&BatchSize, "batch-size", 0, "files per processing batch (0 = default)")
	cmd.Flags().IntVar(&Concurrency, "concurrency", 0, "parallel workers per batch (0 = default)")
	cmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to cache server responses")

	cmd.Flags().StringVar(&WikiLinks, "wiki-links", "keep", "vault: keep [[links]] or rewrite to markdown")
	cmd.Flags().StringVar(&BlockMode, "block-mode", "loose", "pagearchive: strict strips unknown inline markup")
	cmd.Flags().StringSliceVar(&Patterns, "patterns", nil, "dirtree: glob patterns for page files")
	cmd.Flags().BoolVar(&Recursive, "recursive", false, "dirtree: descend into subdirectories")

	cmd.Flags().StringVar(&GitBranch, "git-branch", "", "gitsnap: branch to check out")
	cmd.Flags().StringVar(&GitAuthorName, "git-author-name", "", "gitsnap: commit author name")
	cmd.Flags().StringVar(&GitAuthorEmail, "git-author-email", "", "gitsnap: commit author email")
	cmd.Flags().StringVar(&GitMessage, "git-message", "", "gitsnap: commit message")
	cmd.Flags().BoolVar(&AutoCommit, "auto-commit", false, "gitsnap: commit the working tree after the operation")
}

// buildOptions assembles pipeline options from the bound flags.
func buildOptions() (*pipeline.Options, error) {
	path, err := homedir.Expand(PathFlag)
	if err != nil {
		return nil, err
	}

	return &pipeline.Options{
		Path:               path,
		ParentNoteID:       ParentFlag,
		DryRun:             DryRun,
		Duplicates:         pipeline.DuplicatePolicy(Duplicates),
		PreserveStructure:  PreserveStructure,
		IncludeAttachments: WithAttachments,
		BatchSize:          BatchSize,
		Concurrency:        Concurrency,
		WikiLinkMode:       WikiLinks,
		BlockMode:          BlockMode,
		Patterns:           Patterns,
		Recursive:          Recursive,
		Git: pipeline.GitOptions{
			Branch:      GitBranch,
			AuthorName:  GitAuthorName,
			AuthorEmail: GitAuthorEmail,
			Message:     GitMessage,
			AutoCommit:  AutoCommit,
		},
	}, nil
}
