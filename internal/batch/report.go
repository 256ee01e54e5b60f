// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// PrintSummary writes the one-line run summary to w. It carries counts
// only; failure detail lives in the error log.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nRun summary: %d converted, %d empty, %d skipped, %d failed (total: %d)\n",
		s.Converted, s.Empty, s.Skipped, s.Failed, s.Total())
}

// WriteReport writes the summary, including every file result, as YAML.
func WriteReport(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run report %s: %w", path, err)
	}
	return nil
}
