package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noteport/noteport/internal/termfmt"
)

// formatsCmd represents the formats command
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the available format handlers",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := buildManager(nil)

		fmt.Println("Import formats:")
		for _, f := range manager.ImportFormats() {
			fmt.Printf("  %v  %s\n", termfmt.Bold().V(f), manager.DescribeImporter(f))
		}

		fmt.Println("Export formats:")
		for _, f := range manager.ExportFormats() {
			fmt.Printf("  %v  %s\n", termfmt.Bold().V(f), manager.DescribeExporter(f))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
