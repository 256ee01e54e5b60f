// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfdoc assembles ordered page images into a single PDF document.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/bmp" // register decoder
)

// DefaultDPI is the print resolution of every page: a page measures its
// pixel size divided by DefaultDPI, in inches.
const DefaultDPI = 300

var (
	// ErrDecode is returned when a page cannot be read or decoded.
	ErrDecode = errors.New("decoding page")

	// ErrSave is returned when the document cannot be written.
	ErrSave = errors.New("saving document")
)

// pageTypes are the content types decoded as pages. Entries are selected by
// name, so a .jpg entry may hold any of them.
var pageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp"}

func init() {
	// pdfcpu otherwise creates a configuration directory under the user's
	// home on first use.
	api.DisableConfigDir()
}

// Opener provides page streams by entry name. archive.Archive satisfies it.
type Opener interface {
	Open(name string) (io.ReadCloser, error)
}

// Page is one decoded page ready for embedding: an encoded image whose
// colour model has no alpha channel.
type Page struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

// saveFunc writes pages, in order, as one document to w.
type saveFunc func(w io.Writer, pages []Page, dpi int) error

// Assembler turns page images into PDF documents.
type Assembler struct {
	dpi  int
	save saveFunc
}

// NewAssembler returns an Assembler that records DefaultDPI on every page.
func NewAssembler() *Assembler {
	return &Assembler{dpi: DefaultDPI, save: importImages}
}

// Assemble decodes the named entries in order and writes them to outPath
// as one document, returning the page count. With no names it writes
// nothing and returns 0. The document is written to a temporary file and
// renamed into place, so outPath never holds a partial document.
func (a *Assembler) Assemble(names []string, src Opener, outPath string) (int, error) {
	pages := make([]Page, 0, len(names))
	defer func() {
		for i := range pages {
			pages[i].Data = nil
		}
	}()

	for _, name := range names {
		p, err := decodePage(src, name)
		if err != nil {
			return 0, err
		}
		pages = append(pages, p)
	}

	if len(pages) == 0 {
		return 0, nil
	}

	if err := a.write(outPath, pages); err != nil {
		return 0, err
	}
	return len(pages), nil
}

func (a *Assembler) write(outPath string, pages []Page) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".cb2pdf-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrSave, err)
	}
	tmpPath := tmp.Name()

	saveErr := a.save(tmp, pages, a.dpi)
	closeErr := tmp.Close()
	if saveErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrSave, outPath, saveErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %v", ErrSave, closeErr)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming temp file: %v", ErrSave, err)
	}
	return nil
}

// decodePage reads one entry and returns it in an alpha-free colour model.
// YCbCr JPEGs are kept byte for byte; everything else is
// flattened onto white and re-encoded as PNG.
func decodePage(src Opener, name string) (Page, error) {
	rc, err := src.Open(name)
	if err != nil {
		return Page{}, fmt.Errorf("%w %s: %v", ErrDecode, name, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return Page{}, fmt.Errorf("%w %s: %v", ErrDecode, name, err)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), pageTypes...) {
		return Page{}, fmt.Errorf("%w %s: unsupported content type %s", ErrDecode, name, mt.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("%w %s: %v", ErrDecode, name, err)
	}
	b := img.Bounds()
	page := Page{Name: name, Width: b.Dx(), Height: b.Dy()}

	if _, ok := img.(*image.YCbCr); ok {
		page.Data = data
		return page, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, flatten(img)); err != nil {
		return Page{}, fmt.Errorf("%w %s: re-encoding: %v", ErrDecode, name, err)
	}
	page.Data = buf.Bytes()
	return page, nil
}

// flatten composites img over an opaque white canvas. The PNG encoder
// stores opaque RGBA images as 3-channel RGB.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// importImages writes pages through pdfcpu's image import, one page per
// image. Each page's MediaBox is its pixel size at dpi, with the image
// drawn edge to edge.
func importImages(w io.Writer, pages []Page, dpi int) error {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.IMPORTIMAGES

	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, pageDim(pages[0], dpi))
	if err != nil {
		return err
	}
	pagesIndRef, err := ctx.Pages()
	if err != nil {
		return err
	}
	pagesDict, err := ctx.DereferenceDict(*pagesIndRef)
	if err != nil {
		return err
	}

	for _, p := range pages {
		indRefs, err := pdfcpu.NewPagesForImage(ctx.XRefTable, bytes.NewReader(p.Data), pagesIndRef, pageImport(p, dpi))
		if err != nil {
			return fmt.Errorf("importing %s: %w", p.Name, err)
		}
		for _, indRef := range indRefs {
			if err := ctx.SetValid(*indRef); err != nil {
				return err
			}
			if err := model.AppendPageTree(indRef, 1, pagesDict); err != nil {
				return err
			}
			ctx.PageCount++
		}
	}
	return api.Write(ctx, w, conf)
}

// pageDim is the physical size of p in points when printed at dpi.
func pageDim(p Page, dpi int) *types.Dim {
	return &types.Dim{
		Width:  float64(p.Width) * 72 / float64(dpi),
		Height: float64(p.Height) * 72 / float64(dpi),
	}
}

// pageImport places p unscaled at dpi on a page of exactly its size. A
// Full import would size the page in pixels and ignore the resolution.
func pageImport(p Page, dpi int) *pdfcpu.Import {
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = pageDim(p, dpi)
	imp.UserDim = true
	imp.Pos = types.Center
	imp.DPI = dpi
	imp.Scale = 1
	imp.ScaleAbs = true
	return imp
}
