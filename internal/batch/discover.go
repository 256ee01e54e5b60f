// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"

	"github.com/pdiddy/cb2pdf/internal/archive"
)

// Discover lists the comic archives directly inside dir, in name order.
// Subdirectories are not traversed.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading working directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if archive.KindOf(e.Name()) != archive.KindUnrecognized {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

// Partition splits files into consecutive batches of at most size entries.
// The last batch may be shorter. Order is preserved.
func Partition(files []string, size int) [][]string {
	if size <= 0 || len(files) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		batches = append(batches, files[start:end:end])
	}
	return batches
}
