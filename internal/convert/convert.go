// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns one comic book archive into a PDF and moves the
// archive to the holding area. Failures are classified, written to the
// error log, and never returned to the caller.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cb2pdf/internal/archive"
	"github.com/pdiddy/cb2pdf/internal/errlog"
	"github.com/pdiddy/cb2pdf/internal/metrics"
	"github.com/pdiddy/cb2pdf/internal/pdfdoc"
	"github.com/pdiddy/cb2pdf/pkg/types"
)

// outputExt is the extension given to converted documents.
const outputExt = ".pdf"

// Assembler writes ordered page entries as one document. pdfdoc.Assembler
// implements it.
type Assembler interface {
	Assemble(names []string, src pdfdoc.Opener, outPath string) (int, error)
}

// Processor converts single archives. It is safe for concurrent use as
// long as each call receives a different file name.
type Processor struct {
	cfg       types.BatchConfig
	assembler Assembler
	errs      *errlog.Log
	log       zerolog.Logger
	metrics   *metrics.Recorder
	move      func(src, dst string) error
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the diagnostic logger (default: disabled).
func WithLogger(log zerolog.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithMetrics sets the recorder that observes every file result.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = rec }
}

// WithAssembler replaces the PDF assembler.
func WithAssembler(a Assembler) Option {
	return func(p *Processor) { p.assembler = a }
}

// NewProcessor returns a Processor reading from cfg.WorkingDir, moving
// attempted archives into cfg.HoldingDir, and appending failures to errs.
func NewProcessor(cfg types.BatchConfig, errs *errlog.Log, opts ...Option) *Processor {
	p := &Processor{
		cfg:       cfg,
		assembler: pdfdoc.NewAssembler(),
		errs:      errs,
		log:       zerolog.Nop(),
		move:      moveFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OutputName returns the document name for a source file name: the text
// before the last dot, plus ".pdf".
func OutputName(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		filename = filename[:i]
	}
	return filename + outputExt
}

// Process converts filename, a file directly inside the working directory.
// Names that are neither .cbz nor .cbr are skipped untouched. After a
// conversion attempt that raised no error the archive is moved to the
// holding area, even when it held no pages. A failed archive stays in
// place unless RelocateFailed is set. Every failure appends one record to
// the error log; nothing is returned as an error.
func (p *Processor) Process(filename string) (res types.FileResult) {
	start := time.Now()
	res.Name = filename
	src := filepath.Join(p.cfg.WorkingDir, filename)
	kind := archive.KindOf(filename)

	defer func() {
		if r := recover(); r != nil {
			p.fail(&res, &FileError{Kind: KindUnknown, File: filename, Path: src, Archive: kind, Err: fmt.Errorf("panic: %v", r)})
		}
		res.Duration = time.Since(start)
		p.metrics.ObserveFile(res)
	}()

	if kind == archive.KindUnrecognized {
		res.Status = types.StatusSkipped
		return res
	}

	out := filepath.Join(p.cfg.WorkingDir, OutputName(filename))
	pages, err := p.convert(src, kind, out)
	if err != nil {
		p.fail(&res, &FileError{Kind: Classify(err), File: filename, Path: src, Archive: kind, Err: err})
		if !p.cfg.RelocateFailed {
			return res
		}
	} else {
		res.Pages = pages
		res.Status = types.StatusEmpty
		if pages > 0 {
			res.Status = types.StatusConverted
			res.OutputPath = out
		}
	}

	if err := p.move(src, filepath.Join(p.cfg.HoldingDir, filename)); err != nil {
		p.fail(&res, &FileError{Kind: KindRelocation, File: filename, Path: src, Archive: kind, Err: err})
		return res
	}
	res.Relocated = true

	p.log.Debug().
		Str("file", filename).
		Str("status", string(res.Status)).
		Int("pages", res.Pages).
		Msg("processed")
	return res
}

// convert opens the archive, orders its pages, and assembles the document.
// The archive is closed on every path.
func (p *Processor) convert(src string, kind archive.Kind, out string) (int, error) {
	a, err := archive.Open(src, kind)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	return p.assembler.Assemble(archive.ImageNames(a), a, out)
}

// fail marks res failed and appends the record. A record that cannot be
// written is reported on the diagnostic logger instead.
func (p *Processor) fail(res *types.FileResult, fe *FileError) {
	res.Status = types.StatusFailed
	record := fe.Error()
	if res.Error == "" {
		res.Error = record
	} else {
		res.Error += "; " + record
	}

	p.log.Debug().
		Str("file", fe.File).
		Str("kind", fe.Kind.String()).
		Err(fe.Err).
		Msg("conversion failed")

	if err := p.errs.Write(record); err != nil {
		p.log.Warn().Err(err).Str("file", fe.File).Msg("error record not written")
	}
}
