package main

import (
	"fmt"

	"github.com/noteport/noteport/internal/termfmt"
	"github.com/noteport/noteport/pipeline"
)

// printSummary renders one operation's outcome for the terminal.
func printSummary(verb string, s pipeline.Summary) {
	fmt.Printf("%s %d/%d files in %s",
		verb,
		s.SuccessfulFiles,
		s.TotalFiles,
		s.Duration.Round(1e6), // milliseconds are plenty
	)
	if s.SkippedFiles > 0 {
		fmt.Printf(", %v skipped", termfmt.Fg(0xcc, 0xaa, 0x00, termfmt.Yellow).V(s.SkippedFiles))
	}
	if s.FailedFiles > 0 {
		fmt.Printf(", %v failed", termfmt.Bold().Fg(0xcc, 0x00, 0x00, termfmt.Red).V(s.FailedFiles))
	}
	fmt.Println()

	for _, e := range s.Errors {
		fmt.Printf("  %v %s\n", termfmt.Fg(0xcc, 0x00, 0x00, termfmt.Red).V("error:"), e.Error())
	}
	for _, w := range s.Warnings {
		fmt.Printf("  %v %s\n", termfmt.Fg(0xcc, 0xaa, 0x00, termfmt.Yellow).V("warning:"), w)
	}
}

func printFileList(files []pipeline.FileInfo) {
	for _, f := range files {
		kind := f.Meta("kind")
		if kind == "" {
			kind = "file"
		}
		fmt.Printf("  %-12s %s\n", kind, f.RelPath)
	}
	fmt.Printf("%d files.\n", len(files))
}
