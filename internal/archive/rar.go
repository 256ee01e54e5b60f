// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nwaples/rardecode/v2"
)

const mimeRAR = "application/x-rar-compressed"

// rarArchive reads CBR files. RAR volumes are decoded sequentially, so Open
// advances a single reader to the requested entry and only rewinds (reopens
// the file) when asked for an entry that lies behind the current position.
// Pages are requested in sorted order, which for most archives matches
// storage order and keeps a full conversion to one pass.
type rarArchive struct {
	path  string
	names []string
	index map[string]int

	rc   *rardecode.ReadCloser
	next int // container index of the header the next Next call returns
}

func openRar(path string) (*rarArchive, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	if !mt.Is(mimeRAR) {
		return nil, fmt.Errorf("%w: %s (detected %s)", ErrNotAnArchive, path, mt.String())
	}

	rc, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	defer rc.Close()

	r := &rarArchive{path: path, index: make(map[string]int)}
	for i := 0; ; i++ {
		h, err := rc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
		}
		if h.IsDir {
			continue
		}
		if _, dup := r.index[h.Name]; !dup {
			r.names = append(r.names, h.Name)
		}
		r.index[h.Name] = i
	}
	return r, nil
}

func (r *rarArchive) Names() []string { return r.names }

func (r *rarArchive) Open(name string) (io.ReadCloser, error) {
	target, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	if r.rc == nil || target < r.next {
		if err := r.rewind(); err != nil {
			return nil, err
		}
	}

	for {
		h, err := r.rc.Next()
		if err != nil {
			return nil, fmt.Errorf("seeking to entry %s: %w", name, err)
		}
		r.next++
		if r.next-1 == target && h.Name == name {
			return io.NopCloser(r.rc), nil
		}
	}
}

func (r *rarArchive) rewind() error {
	if r.rc != nil {
		r.rc.Close()
		r.rc = nil
	}
	rc, err := rardecode.OpenReader(r.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOpen, r.path, err)
	}
	r.rc = rc
	r.next = 0
	return nil
}

func (r *rarArchive) Close() error {
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}
