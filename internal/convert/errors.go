// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"

	"github.com/pdiddy/cb2pdf/internal/archive"
	"github.com/pdiddy/cb2pdf/internal/pdfdoc"
)

// ErrorKind classifies a per-file failure.
type ErrorKind int

const (
	// KindUnknown covers failures no other kind describes, including
	// recovered panics.
	KindUnknown ErrorKind = iota
	// KindArchiveOpen means the container could not be opened or read.
	KindArchiveOpen
	// KindNotAnArchive means a CBR file does not hold a RAR container.
	KindNotAnArchive
	// KindConversion means a page could not be decoded or the document saved.
	KindConversion
	// KindRelocation means the source could not be moved to the holding area.
	KindRelocation
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case KindArchiveOpen:
		return "archive-open"
	case KindNotAnArchive:
		return "not-an-archive"
	case KindConversion:
		return "conversion"
	case KindRelocation:
		return "relocation"
	default:
		return "unknown"
	}
}

// Classify maps an error from the archive or pdfdoc packages onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, archive.ErrNotAnArchive):
		return KindNotAnArchive
	case errors.Is(err, archive.ErrOpen):
		return KindArchiveOpen
	case errors.Is(err, pdfdoc.ErrDecode), errors.Is(err, pdfdoc.ErrSave):
		return KindConversion
	default:
		return KindUnknown
	}
}

// FileError is the failure of one source archive. Its Error text is the
// record appended to the error log.
type FileError struct {
	Kind    ErrorKind
	File    string // file name within the working directory
	Path    string // absolute source path
	Archive archive.Kind
	Err     error
}

func (e *FileError) Error() string {
	switch e.Kind {
	case KindNotAnArchive:
		return fmt.Sprintf("Not a valid RAR file: %s", e.Path)
	case KindArchiveOpen, KindConversion:
		return fmt.Sprintf("Error processing %s %s: %v", e.Archive, e.Path, e.Err)
	default:
		return fmt.Sprintf("Failed to process %s: %v", e.File, e.Err)
	}
}

func (e *FileError) Unwrap() error { return e.Err }
