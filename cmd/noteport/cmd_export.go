package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [note-id...]",
	Short: "Export notes from the note server to a local format",
	Long: `
Export the note trees rooted at the given note ids (default: root) to a local destination in the
chosen format.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addOperationFlags(exportCmd)
	exportCmd.MarkFlagRequired("format")
	exportCmd.MarkFlagRequired("path")
}

func runExport(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		ids = []string{"root"}
	}

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

	result, err := manager.Export(ctx, FormatFlag, ids, opts)
	if err != nil {
		return fmt.Errorf("cmd: %s export failed: %w", FormatFlag, err)
	}

	verb := "Exported"
	if opts.DryRun {
		verb = "Would export"
	}
	printSummary(verb, result.Summary)

	if result.ArchivePath != "" && !opts.DryRun {
		fmt.Printf("Archive written to %s\n", result.ArchivePath)
	}
	if result.CommitHash != "" {
		fmt.Printf("Committed as %s\n", result.CommitHash)
	}

	return nil
}
