package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cb2pdf/internal/archive"
	"github.com/pdiddy/cb2pdf/internal/convert"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [archives...]",
	Short: "List the pages of comic archives in output order",
	Long: `Inspect opens each archive, detects its kind from the extension, and prints
the image entries in the order they would appear in the PDF. Nothing is
written or moved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		kind := archive.KindOf(path)
		if kind == archive.KindUnrecognized {
			fmt.Fprintf(w, "skipped: %s (not a .cbz or .cbr file)\n", path)
			continue
		}
		names, err := archive.ListImages(path, kind)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s [%s] -> %s, %d page(s)\n", path, kind, convert.OutputName(path), len(names))
		for i, n := range names {
			fmt.Fprintf(w, "  %4d  %s\n", i+1, n)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d archive(s) could not be read", failed)
	}
	return nil
}
