package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Preview what an import would pick up",
	Long: `
List the files an import of the given source would process, without contacting the note server or
writing anything.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addOperationFlags(scanCmd)
	scanCmd.MarkFlagRequired("format")
	scanCmd.MarkFlagRequired("path")
}

func runScan(ctx context.Context) error {
	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("cmd: couldn't assemble options: %w", err)
	}

	// Scanning never talks to the server, so no API client is needed.
	manager := buildManager(nil)

	files, err := manager.Scan(ctx, FormatFlag, opts)
	if err != nil {
		return fmt.Errorf("cmd: %s scan failed: %w", FormatFlag, err)
	}

	printFileList(files)
	return nil
}
