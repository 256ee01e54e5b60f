// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cb2pdf/internal/comictest"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"issue.cbz", KindCBZ},
		{"ISSUE.CBZ", KindCBZ},
		{"issue.Cbr", KindCBR},
		{"issue.cbr", KindCBR},
		{"issue.zip", KindUnrecognized},
		{"issue.cbz.txt", KindUnrecognized},
		{"cbz", KindUnrecognized},
		{"", KindUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.name))
		})
	}
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"001.jpg", true},
		{"001.JPEG", true},
		{"pages/002.Png", true},
		{"cover_jpg", true},
		{"notes.txt", false},
		{"ComicInfo.xml", false},
		{"002.gif", false},
		{"003.webp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImage(tt.name))
		})
	}
}

func TestListImages_CBZSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	page := comictest.PNG(t, 2, 2, color.White)
	path := comictest.WriteCBZ(t, dir, "a.cbz",
		comictest.Entry{Name: "3.jpg", Data: page},
		comictest.Entry{Name: "ComicInfo.xml", Data: []byte("<ComicInfo/>")},
		comictest.Entry{Name: "1.jpg", Data: page},
		comictest.Entry{Name: "2.PNG", Data: page},
	)

	names, err := ListImages(path, KindCBZ)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg", "2.PNG", "3.jpg"}, names)
}

func TestListImages_EmptyArchive(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBZ(t, dir, "empty.cbz",
		comictest.Entry{Name: "readme.txt", Data: []byte("no pages")},
	)

	names, err := ListImages(path, KindCBZ)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpen_CBZEntry(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBZ(t, dir, "a.cbz",
		comictest.Entry{Name: "1.jpg", Data: []byte("page one")},
	)

	a, err := Open(path, KindCBZ)
	require.NoError(t, err)
	defer a.Close()

	rc, err := a.Open("1.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "page one", string(data))

	_, err = a.Open("missing.jpg")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		kind    Kind
		wantErr error
	}{
		{
			name:    "corrupt zip",
			file:    "bad.cbz",
			data:    []byte("this is not a zip archive"),
			kind:    KindCBZ,
			wantErr: ErrOpen,
		},
		{
			name:    "cbr holding text",
			file:    "bad.cbr",
			data:    []byte("this is not a rar archive"),
			kind:    KindCBR,
			wantErr: ErrNotAnArchive,
		},
		{
			name:    "empty cbr",
			file:    "empty.cbr",
			data:    []byte{},
			kind:    KindCBR,
			wantErr: ErrNotAnArchive,
		},
		{
			name:    "unrecognized kind",
			file:    "a.zip",
			data:    []byte("whatever"),
			kind:    KindUnrecognized,
			wantErr: ErrOpen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := comictest.WriteFile(t, t.TempDir(), tt.file, tt.data)
			a, err := Open(path, tt.kind)
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpen_CBRHoldingZip(t *testing.T) {
	// A zip renamed to .cbr is still not a RAR container.
	dir := t.TempDir()
	path := comictest.WriteCBZ(t, dir, "mislabeled.cbr", comictest.Pages(t, 1)...)

	_, err := Open(path, KindCBR)
	assert.ErrorIs(t, err, ErrNotAnArchive)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/a.cbz", KindCBZ)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = Open("/nonexistent/a.cbr", KindCBR)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestListImages_CBRSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBR(t, dir, "a.cbr",
		comictest.Entry{Name: "2.jpg", Data: []byte("page two")},
		comictest.Entry{Name: "1.jpg", Data: []byte("page one")},
		comictest.Entry{Name: "dir/"},
		comictest.Entry{Name: "dir/3.png", Data: []byte("page three")},
		comictest.Entry{Name: "notes.txt", Data: []byte("not a page")},
	)

	names, err := ListImages(path, KindCBR)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg", "2.jpg", "dir/3.png"}, names)
}

func readEntry(t *testing.T, a Archive, name string) string {
	t.Helper()
	rc, err := a.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return string(data)
}

func TestOpen_CBREntriesInAnyOrder(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBR(t, dir, "a.cbr",
		comictest.Entry{Name: "2.jpg", Data: []byte("page two")},
		comictest.Entry{Name: "1.jpg", Data: []byte("page one")},
		comictest.Entry{Name: "dir/"},
		comictest.Entry{Name: "dir/3.png", Data: []byte("page three")},
	)

	a, err := Open(path, KindCBR)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"2.jpg", "1.jpg", "dir/3.png"}, a.Names(), "directories are omitted")

	// Sorted page order runs against storage order here, so the reader
	// has to go back for 2.jpg and again when it is reopened.
	assert.Equal(t, "page one", readEntry(t, a, "1.jpg"))
	assert.Equal(t, "page two", readEntry(t, a, "2.jpg"))
	assert.Equal(t, "page two", readEntry(t, a, "2.jpg"))
	assert.Equal(t, "page three", readEntry(t, a, "dir/3.png"))
	assert.Equal(t, "page one", readEntry(t, a, "1.jpg"))

	_, err = a.Open("missing.jpg")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOpen_CBRDuplicateEntries(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBR(t, dir, "dup.cbr",
		comictest.Entry{Name: "1.jpg", Data: []byte("first")},
		comictest.Entry{Name: "2.jpg", Data: []byte("other")},
		comictest.Entry{Name: "1.jpg", Data: []byte("second")},
	)

	a, err := Open(path, KindCBR)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"1.jpg", "2.jpg"}, a.Names())
	assert.Equal(t, "second", readEntry(t, a, "1.jpg"), "the later copy wins")
}

func TestListImages_EmptyCBR(t *testing.T) {
	dir := t.TempDir()
	path := comictest.WriteCBR(t, dir, "empty.cbr",
		comictest.Entry{Name: "ComicInfo.xml", Data: []byte("<ComicInfo/>")},
	)

	names, err := ListImages(path, KindCBR)
	require.NoError(t, err)
	assert.Empty(t, names)
}
