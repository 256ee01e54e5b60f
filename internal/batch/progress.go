// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress reports completions within one batch.
type Progress interface {
	// Increment marks one more file in the batch as finished.
	Increment()
	// Finish is called once every file in the batch has finished.
	Finish()
}

// ProgressFactory creates the indicator for a batch of size files.
type ProgressFactory func(batch, size int) Progress

// BarProgress returns a factory drawing a terminal progress bar on w.
func BarProgress(w io.Writer) ProgressFactory {
	return func(batch, size int) Progress {
		return &barProgress{bar: progressbar.NewOptions(size,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(fmt.Sprintf("Processing batch %d", batch)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		)}
	}
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func (b *barProgress) Increment() { _ = b.bar.Add(1) }

func (b *barProgress) Finish() { _ = b.bar.Finish() }

// NoProgress discards progress updates.
func NoProgress(int, int) Progress { return noProgress{} }

type noProgress struct{}

func (noProgress) Increment() {}
func (noProgress) Finish()    {}
