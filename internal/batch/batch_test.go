// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cb2pdf/internal/comictest"
	"github.com/pdiddy/cb2pdf/internal/convert"
	"github.com/pdiddy/cb2pdf/internal/errlog"
	"github.com/pdiddy/cb2pdf/pkg/types"
)

// trackingProcessor records concurrency and ordering. Files are expected
// to be named so that their discovery index is recoverable via order.
type trackingProcessor struct {
	mu        sync.Mutex
	order     map[string]int
	batchSize int
	running   int
	maxSeen   int
	finished  int
	started   []string
	violation string
	status    types.FileStatus
}

func (p *trackingProcessor) Process(name string) types.FileResult {
	p.mu.Lock()
	idx := p.order[name]
	if floor := (idx / p.batchSize) * p.batchSize; p.finished < floor {
		p.violation = fmt.Sprintf("%s started with only %d files finished", name, p.finished)
	}
	p.running++
	p.maxSeen = max(p.maxSeen, p.running)
	p.started = append(p.started, name)
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.running--
	p.finished++
	p.mu.Unlock()

	status := p.status
	if status == "" {
		status = types.StatusConverted
	}
	return types.FileResult{Name: name, Status: status}
}

// countingProgress counts increments per batch.
type countingProgress struct {
	mu       sync.Mutex
	sizes    []int
	counts   []int
	finished int
}

func (c *countingProgress) factory(batch, size int) Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes = append(c.sizes, size)
	c.counts = append(c.counts, 0)
	return &countingBar{c: c, i: len(c.counts) - 1}
}

type countingBar struct {
	c *countingProgress
	i int
}

func (b *countingBar) Increment() {
	b.c.mu.Lock()
	b.c.counts[b.i]++
	b.c.mu.Unlock()
}

func (b *countingBar) Finish() {
	b.c.mu.Lock()
	b.c.finished++
	b.c.mu.Unlock()
}

// writeArchives creates n empty .cbz placeholders named f00.cbz... and
// returns the names in discovery order.
func writeArchives(t *testing.T, dir string, n int) []string {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("f%02d.cbz", i)
		comictest.WriteFile(t, dir, names[i], []byte("x"))
	}
	return names
}

func newTestScheduler(t *testing.T, cfg types.BatchConfig, proc Processor, opts ...Option) (*Scheduler, *[]time.Duration) {
	t.Helper()
	s, err := NewScheduler(cfg, proc, opts...)
	require.NoError(t, err)
	var sleeps []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	s.reclaim = func() {}
	return s, &sleeps
}

func TestPartition(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e", "f", "g"}
	tests := []struct {
		name string
		size int
		want [][]string
	}{
		{"even split", 7, [][]string{{"a", "b", "c", "d", "e", "f", "g"}}},
		{"short last batch", 3, [][]string{{"a", "b", "c"}, {"d", "e", "f"}, {"g"}}},
		{"size one", 1, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}, {"f"}, {"g"}}},
		{"oversized", 10, [][]string{files}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(files, tt.size)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, (len(files)+tt.size-1)/tt.size)
		})
	}

	assert.Empty(t, Partition(nil, 5))
	assert.Empty(t, Partition(files, 0))
}

func TestPartition_AppendDoesNotClobber(t *testing.T) {
	files := []string{"a", "b", "c", "d"}
	batches := Partition(files, 2)
	_ = append(batches[0], "z")
	assert.Equal(t, []string{"a", "b", "c", "d"}, files)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.cbr", "a.CBZ", "c.cbz", "notes.txt", "d.pdf", "error_log.txt"} {
		comictest.WriteFile(t, dir, name, []byte("x"))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.cbz"), 0o755))
	comictest.WriteFile(t, filepath.Join(dir, "old"), "held.cbz", []byte("x"))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.CBZ", "b.cbr", "c.cbz"}, files)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNewScheduler_InvalidConfig(t *testing.T) {
	cfg := types.NewBatchConfig(t.TempDir())
	cfg.MaxWorkers = 0
	_, err := NewScheduler(cfg, &trackingProcessor{})
	assert.Error(t, err)
}

func TestRun_BatchesAndConcurrency(t *testing.T) {
	tests := []struct {
		name      string
		files     int
		batchSize int
		workers   int
	}{
		{"defaults shape", 12, 5, 4},
		{"workers below batch", 10, 4, 2},
		{"single worker", 5, 5, 1},
		{"workers above batch", 7, 3, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.NewBatchConfig(t.TempDir())
			cfg.BatchSize = tt.batchSize
			cfg.MaxWorkers = tt.workers
			cfg.SleepInterval = 3 * time.Second
			names := writeArchives(t, cfg.WorkingDir, tt.files)

			proc := &trackingProcessor{order: map[string]int{}, batchSize: tt.batchSize}
			for i, n := range names {
				proc.order[n] = i
			}
			progress := &countingProgress{}
			var out bytes.Buffer
			s, sleeps := newTestScheduler(t, cfg, proc, WithOutput(&out), WithProgress(progress.factory))

			sum, err := s.Run(context.Background())
			require.NoError(t, err)

			wantBatches := (tt.files + tt.batchSize - 1) / tt.batchSize
			assert.Empty(t, proc.violation)
			assert.LessOrEqual(t, proc.maxSeen, tt.workers)
			assert.Equal(t, wantBatches, sum.Batches)
			assert.Equal(t, tt.files, sum.Converted)
			assert.ElementsMatch(t, names, proc.started)

			for i, r := range sum.Files {
				assert.Equal(t, names[i], r.Name, "summary keeps discovery order")
			}

			assert.Equal(t, wantBatches, strings.Count(out.String(), "Processing batch "))
			assert.Contains(t, out.String(), fmt.Sprintf("Processing batch %d/%d...", wantBatches, wantBatches))
			assert.Len(t, *sleeps, wantBatches-1)
			for _, d := range *sleeps {
				assert.Equal(t, 3*time.Second, d)
			}

			assert.Equal(t, wantBatches, progress.finished)
			assert.Equal(t, progress.sizes, progress.counts, "every file reported once")
		})
	}
}

func TestRun_CreatesHoldingDirAndHandlesEmptyDir(t *testing.T) {
	cfg := types.NewBatchConfig(t.TempDir())
	var out bytes.Buffer
	s, sleeps := newTestScheduler(t, cfg, &trackingProcessor{batchSize: 1}, WithOutput(&out))

	sum, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.DirExists(t, cfg.HoldingDir)
	assert.Zero(t, sum.Batches)
	assert.Zero(t, sum.Total())
	assert.Empty(t, out.String())
	assert.Empty(t, *sleeps)
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	cfg := types.NewBatchConfig(t.TempDir())
	cfg.BatchSize = 2
	names := writeArchives(t, cfg.WorkingDir, 5)
	proc := &trackingProcessor{order: map[string]int{}, batchSize: 2}
	for i, n := range names {
		proc.order[n] = i
	}

	ctx, cancel := context.WithCancel(context.Background())
	s, _ := newTestScheduler(t, cfg, proc, WithRunID("run-1"))
	s.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	sum, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Batches)
	assert.Equal(t, 2, sum.Total())
	assert.Equal(t, "run-1", sum.RunID)
	assert.False(t, sum.FinishedAt.IsZero())
}

func TestRun_FilesAddedAfterDiscoveryIgnored(t *testing.T) {
	cfg := types.NewBatchConfig(t.TempDir())
	cfg.BatchSize = 1
	writeArchives(t, cfg.WorkingDir, 2)
	proc := &trackingProcessor{order: map[string]int{"f00.cbz": 0, "f01.cbz": 1}, batchSize: 1}
	s, _ := newTestScheduler(t, cfg, proc)
	s.sleep = func(context.Context, time.Duration) error {
		comictest.WriteFile(t, cfg.WorkingDir, "late.cbz", []byte("x"))
		return nil
	}

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total())
	assert.NotContains(t, proc.started, "late.cbz")
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := types.NewBatchConfig(t.TempDir())
	cfg.SleepInterval = 0
	pages := comictest.Pages(t, 3)
	pages[0].Name, pages[1].Name, pages[2].Name = "3.png", "1.png", "2.png"
	comictest.WriteCBZ(t, cfg.WorkingDir, "a.cbz", pages...)
	comictest.WriteFile(t, cfg.WorkingDir, "b.cbr", []byte("invalid payload"))
	comictest.WriteCBZ(t, cfg.WorkingDir, "c.cbz",
		comictest.Entry{Name: "ComicInfo.xml", Data: []byte("<ComicInfo/>")})

	proc := convert.NewProcessor(cfg, errlog.New(cfg.LogPath))
	s, err := NewScheduler(cfg, proc)
	require.NoError(t, err)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Converted)
	assert.Equal(t, 1, sum.Empty)
	assert.Equal(t, 1, sum.Failed)
	assert.True(t, sum.HasFailures())

	count, err := api.PageCountFile(filepath.Join(cfg.WorkingDir, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.FileExists(t, filepath.Join(cfg.HoldingDir, "a.cbz"))
	assert.FileExists(t, filepath.Join(cfg.HoldingDir, "c.cbz"))
	assert.NoFileExists(t, filepath.Join(cfg.WorkingDir, "c.pdf"))

	assert.FileExists(t, filepath.Join(cfg.WorkingDir, "b.cbr"))
	assert.NoFileExists(t, filepath.Join(cfg.WorkingDir, "b.pdf"))
	data, err := os.ReadFile(cfg.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "b.cbr")
	assert.Contains(t, lines[0], "Not a valid RAR file")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	sum := Summary{RunID: "abc", Batches: 1, Converted: 1, Files: []types.FileResult{
		{Name: "a.cbz", Status: types.StatusConverted, Pages: 3, Relocated: true},
	}}

	require.NoError(t, WriteReport(path, sum))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: abc")
	assert.Contains(t, string(data), "name: a.cbz")
	assert.Contains(t, string(data), "status: converted")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{Converted: 2, Empty: 1, Failed: 1})
	assert.Contains(t, buf.String(), "2 converted, 1 empty, 0 skipped, 1 failed (total: 4)")
}
