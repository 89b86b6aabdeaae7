package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import local notes into the note server",
	Long: `
Import a local source (Markdown vault, zipped page archive, plain directory or git working tree)
into the note server, creating container notes to mirror its hierarchy.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debugLog("  DryRun: %v\n", DryRun)
		return runImport(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	addOperationFlags(importCmd)
	importCmd.MarkFlagRequired("format")
	importCmd.MarkFlagRequired("path")
}

func runImport(ctx context.Context) error {
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

	result, err := manager.Import(ctx, FormatFlag, opts)
	if err != nil {
		return fmt.Errorf("cmd: %s import failed: %w", FormatFlag, err)
	}

	verb := "Imported"
	if opts.DryRun {
		verb = "Would import"
	}
	printSummary(verb, result.Summary)

	debugLog("  created: %v\n", result.CreatedIDs)
	debugLog("  updated: %v\n", result.UpdatedIDs)

	return nil
}
