// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive opens comic book archives and lists their page images.
// CBZ files are zip containers; CBR files are RAR containers.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies the container format of a comic book archive.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindCBZ
	KindCBR
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCBZ:
		return "CBZ"
	case KindCBR:
		return "CBR"
	default:
		return "unrecognized"
	}
}

var (
	// ErrOpen is returned when a container cannot be opened or read.
	ErrOpen = errors.New("cannot open archive")

	// ErrNotAnArchive is returned when a CBR payload is not a RAR container.
	ErrNotAnArchive = errors.New("not a valid RAR file")

	// ErrEntryNotFound is returned by Open for a name the archive does not hold.
	ErrEntryNotFound = errors.New("entry not found")
)

// imageSuffixes are matched against lowercased entry names without a
// leading dot.
var imageSuffixes = []string{"jpg", "jpeg", "png"}

// KindOf detects the archive kind from a file name's extension, ignoring case.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cbz":
		return KindCBZ
	case ".cbr":
		return KindCBR
	default:
		return KindUnrecognized
	}
}

// Archive is an open container. Entry streams returned by Open must be
// closed before the next call to Open.
type Archive interface {
	// Names lists file entry names in container order. Directories are omitted.
	Names() []string

	// Open returns a stream over the named entry.
	Open(name string) (io.ReadCloser, error)

	// Close releases the container's file handles.
	Close() error
}

// Open opens the archive at path as the given kind. Failures wrap ErrOpen,
// or ErrNotAnArchive when a CBR file does not carry a RAR signature.
func Open(path string, kind Kind) (Archive, error) {
	switch kind {
	case KindCBZ:
		return openZip(path)
	case KindCBR:
		return openRar(path)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported kind %s", ErrOpen, path, kind)
	}
}

// IsImage reports whether an entry name ends in a recognized raster image suffix.
func IsImage(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range imageSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// ImageNames returns the archive's image entries sorted by name. The
// result is the page order of the output document.
func ImageNames(a Archive) []string {
	var names []string
	for _, n := range a.Names() {
		if IsImage(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// ListImages opens path, returns its ordered image entries, and closes it.
func ListImages(path string, kind Kind) ([]string, error) {
	a, err := Open(path, kind)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return ImageNames(a), nil
}
