// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package comictest builds comic archive fixtures for tests.
package comictest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// Entry is one file stored in a fixture archive.
type Entry struct {
	Name string
	Data []byte
}

// PNG returns an encoded w x h PNG filled with c.
func PNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, fill(image.NewNRGBA(image.Rect(0, 0, w, h)), c)))
	return buf.Bytes()
}

// JPEG returns an encoded w x h JPEG filled with c.
func JPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, fill(image.NewRGBA(image.Rect(0, 0, w, h)), c), nil))
	return buf.Bytes()
}

// GIF returns an encoded w x h GIF filled with c.
func GIF(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, fill(image.NewRGBA(image.Rect(0, 0, w, h)), c), nil))
	return buf.Bytes()
}

// BMP returns an encoded w x h BMP filled with c.
func BMP(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, fill(image.NewRGBA(image.Rect(0, 0, w, h)), c)))
	return buf.Bytes()
}

// WriteCBZ writes a zip archive holding entries, in the given order, to
// dir/name and returns its path.
func WriteCBZ(t *testing.T, dir, name string, entries ...Entry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// RAR 4 block types and flags used by WriteCBR.
const (
	rarSignature = "Rar!\x1a\x07\x00"

	rarBlockArchive = 0x73
	rarBlockFile    = 0x74
	rarBlockEnd     = 0x7b

	rarHasData   = 0x8000
	rarDirectory = 0x00e0
	rarEndFlags  = 0x4000

	rarStore      = 0x30
	rarDecoderVer = 29

	// 2024-01-01 00:00 in MS-DOS date/time format.
	rarModTime = ((2024-1980)<<9 | 1<<5 | 1) << 16
)

// WriteCBR writes a RAR 4 archive holding entries, stored uncompressed in
// the given order, to dir/name and returns its path. An entry whose name
// ends in "/" is stored as a directory.
func WriteCBR(t *testing.T, dir, name string, entries ...Entry) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(rarSignature)
	writeRarBlock(&buf, rarBlockArchive, 0, make([]byte, 6))

	for _, e := range entries {
		flags := uint16(rarHasData)
		attr := uint32(0x20)
		entryName := e.Name
		if strings.HasSuffix(entryName, "/") {
			flags |= rarDirectory
			attr = 0x10
			entryName = strings.TrimSuffix(entryName, "/")
		}

		var h []byte
		h = binary.LittleEndian.AppendUint32(h, uint32(len(e.Data))) // packed size
		h = binary.LittleEndian.AppendUint32(h, uint32(len(e.Data))) // unpacked size
		h = append(h, 0)                                             // host OS: MS-DOS
		h = binary.LittleEndian.AppendUint32(h, crc32.ChecksumIEEE(e.Data))
		h = binary.LittleEndian.AppendUint32(h, rarModTime)
		h = append(h, rarDecoderVer, rarStore)
		h = binary.LittleEndian.AppendUint16(h, uint16(len(entryName)))
		h = binary.LittleEndian.AppendUint32(h, attr)
		h = append(h, entryName...)

		writeRarBlock(&buf, rarBlockFile, flags, h)
		buf.Write(e.Data)
	}
	writeRarBlock(&buf, rarBlockEnd, rarEndFlags, nil)

	return WriteFile(t, dir, name, buf.Bytes())
}

// writeRarBlock writes one block header. The header CRC is the low 16 bits
// of the CRC-32 of everything after it.
func writeRarBlock(buf *bytes.Buffer, typ byte, flags uint16, body []byte) {
	h := []byte{typ}
	h = binary.LittleEndian.AppendUint16(h, flags)
	h = binary.LittleEndian.AppendUint16(h, uint16(7+len(body)))
	h = append(h, body...)
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(crc32.ChecksumIEEE(h))))
	buf.Write(h)
}

// WriteFile writes raw bytes to dir/name and returns its path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// Pages returns n small PNG entries named 1.png .. n.png.
func Pages(t *testing.T, n int) []Entry {
	t.Helper()
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Name: string(rune('1'+i)) + ".png",
			Data: PNG(t, 4, 6, color.Gray{Y: uint8(40 * i)}),
		}
	}
	return entries
}

type drawable interface {
	image.Image
	Set(x, y int, c color.Color)
}

func fill[T drawable](img T, c color.Color) T {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
