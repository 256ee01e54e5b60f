// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"archive/zip"
	"fmt"
	"io"
)

// zipArchive reads CBZ files. Entries are addressed by their stored name
// rather than through fs.FS so names fs.ValidPath rejects still open.
type zipArchive struct {
	rc    *zip.ReadCloser
	names []string
	files map[string]*zip.File
}

func openZip(path string) (*zipArchive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	z := &zipArchive{rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := z.files[f.Name]; !dup {
			z.names = append(z.names, f.Name)
		}
		z.files[f.Name] = f
	}
	return z, nil
}

func (z *zipArchive) Names() []string { return z.names }

func (z *zipArchive) Open(name string) (io.ReadCloser, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %s: %w", name, err)
	}
	return r, nil
}

func (z *zipArchive) Close() error { return z.rc.Close() }
