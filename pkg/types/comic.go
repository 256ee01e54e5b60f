// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FileStatus indicates the outcome of processing one source archive.
type FileStatus string

const (
	// StatusConverted means a document was written and the archive relocated.
	StatusConverted FileStatus = "converted"
	// StatusEmpty means the archive held no recognized pages; no document
	// was written but the archive was still relocated.
	StatusEmpty FileStatus = "empty"
	// StatusSkipped means the file name matched neither archive kind.
	StatusSkipped FileStatus = "skipped"
	// StatusFailed means an error record was written for the file.
	StatusFailed FileStatus = "failed"
)

// FileResult records what happened to one source archive during a run.
type FileResult struct {
	// Name is the file name inside the working directory (e.g. "issue-01.cbz").
	Name string `json:"name" yaml:"name"`

	// Status is the processing outcome.
	Status FileStatus `json:"status" yaml:"status"`

	// Pages is the number of pages written to the output document.
	Pages int `json:"pages" yaml:"pages"`

	// OutputPath is the document path, set only when a document was written.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Relocated reports whether the archive was moved to the holding area.
	Relocated bool `json:"relocated" yaml:"relocated"`

	// Error is the error record text for failed files.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is the wall time spent on the file.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
