package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Two-way sync between the note server and a git working tree",
	Long: `
Import the working tree's Markdown files, export the server's notes back out, and commit the
result.  Files with uncommitted local changes are reported as conflicts and left untouched.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addOperationFlags(syncCmd)
	syncCmd.MarkFlagRequired("format")
	syncCmd.MarkFlagRequired("path")
}

func runSync(ctx context.Context) error {
	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("cmd: couldn't assemble options: %w", err)
	}

	api, cleanup, err := buildAPI(WithVCR)
	if err != nil {
		return err
	}
	defer cleanup()

	manager := buildManager(api)

	result, err := manager.Sync(ctx, FormatFlag, opts)
	if err != nil {
		return fmt.Errorf("cmd: %s sync failed: %w", FormatFlag, err)
	}

	printSummary("Synced", result.Summary)

	for _, c := range result.Conflicts {
		fmt.Printf("  conflict: %s has uncommitted local changes\n", c)
	}
	if result.CommitHash != "" {
		fmt.Printf("Committed as %s\n", result.CommitHash)
	}

	return nil
}
