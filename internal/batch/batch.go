// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs the conversion of every comic archive in a working
// directory. Files are split into fixed-size batches; the files of a batch
// are converted concurrently by a bounded pool, and the scheduler waits for
// the whole batch, reclaims memory, and pauses before starting the next.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cb2pdf/internal/metrics"
	"github.com/pdiddy/cb2pdf/pkg/types"
)

// Processor converts one file of the working directory. Implementations
// handle their own failures; a result is always returned.
type Processor interface {
	Process(filename string) types.FileResult
}

// Summary holds the outcome of a run.
type Summary struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`
	Batches    int                `json:"batches" yaml:"batches"`
	Converted  int                `json:"converted" yaml:"converted"`
	Empty      int                `json:"empty" yaml:"empty"`
	Skipped    int                `json:"skipped" yaml:"skipped"`
	Failed     int                `json:"failed" yaml:"failed"`
	Files      []types.FileResult `json:"files" yaml:"files"`
}

// Total returns the number of files processed.
func (s Summary) Total() int {
	return s.Converted + s.Empty + s.Skipped + s.Failed
}

// HasFailures reports whether any file produced an error record.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) add(r types.FileResult) {
	s.Files = append(s.Files, r)
	switch r.Status {
	case types.StatusConverted:
		s.Converted++
	case types.StatusEmpty:
		s.Empty++
	case types.StatusSkipped:
		s.Skipped++
	case types.StatusFailed:
		s.Failed++
	}
}

// Scheduler runs batches over the working directory.
type Scheduler struct {
	cfg      types.BatchConfig
	proc     Processor
	out      io.Writer
	progress ProgressFactory
	log      zerolog.Logger
	metrics  *metrics.Recorder
	runID    string

	sleep   func(ctx context.Context, d time.Duration) error
	reclaim func()
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithOutput sets where batch announcements are printed (default io.Discard).
func WithOutput(w io.Writer) Option {
	return func(s *Scheduler) { s.out = w }
}

// WithProgress sets the per-batch progress indicator (default none).
func WithProgress(f ProgressFactory) Option {
	return func(s *Scheduler) { s.progress = f }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithMetrics sets the recorder that observes completed batches.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = rec }
}

// WithRunID tags the summary with a run identifier.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// NewScheduler validates cfg and returns a Scheduler dispatching to proc.
func NewScheduler(cfg types.BatchConfig, proc Processor, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}
	s := &Scheduler{
		cfg:      cfg,
		proc:     proc,
		out:      io.Discard,
		progress: NoProgress,
		log:      zerolog.Nop(),
		sleep:    sleepContext,
		reclaim:  debug.FreeOSMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run creates the holding area, discovers the archives once, and processes
// them batch by batch. Files added after discovery are not picked up.
// Cancelling ctx stops the run before the next batch starts; files already
// dispatched always run to completion. Per-file failures never end the run.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: s.runID, StartedAt: time.Now().UTC()}

	if err := os.MkdirAll(s.cfg.HoldingDir, 0o755); err != nil {
		return sum, fmt.Errorf("creating holding directory %s: %w", s.cfg.HoldingDir, err)
	}

	files, err := Discover(s.cfg.WorkingDir)
	if err != nil {
		return sum, err
	}
	batches := Partition(files, s.cfg.BatchSize)
	s.log.Info().
		Str("run_id", s.runID).
		Int("files", len(files)).
		Int("batches", len(batches)).
		Msg("run started")

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return s.finish(sum), err
		}

		fmt.Fprintf(s.out, "Processing batch %d/%d...\n", i+1, len(batches))
		start := time.Now()
		for _, r := range s.runBatch(i+1, b) {
			sum.add(r)
		}
		sum.Batches++
		s.reclaim()
		s.metrics.ObserveBatch(time.Since(start))
		s.log.Info().
			Int("batch", i+1).
			Int("files", len(b)).
			Dur("elapsed", time.Since(start)).
			Msg("batch complete")

		if i < len(batches)-1 {
			fmt.Fprintln(s.out, "Taking a break before processing the next batch...")
			if err := s.sleep(ctx, s.cfg.SleepInterval); err != nil {
				return s.finish(sum), err
			}
		}
	}
	return s.finish(sum), nil
}

func (s *Scheduler) finish(sum Summary) Summary {
	sum.FinishedAt = time.Now().UTC()
	return sum
}

// runBatch converts every file of one batch with at most MaxWorkers in
// flight and returns once all have finished. Results keep batch order;
// progress is reported in completion order.
func (s *Scheduler) runBatch(index int, files []string) []types.FileResult {
	bar := s.progress(index, len(files))
	results := make([]types.FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxWorkers)
	for i, name := range files {
		g.Go(func() error {
			results[i] = s.proc.Process(name)
			bar.Increment()
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors
	bar.Finish()
	return results
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
