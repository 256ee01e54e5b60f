// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts conversion outcomes with Prometheus collectors and
// writes them in the node-exporter textfile format at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/cb2pdf/pkg/types"
)

const namespace = "cb2pdf"

// Recorder holds the run's collectors in a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	files    *prometheus.CounterVec
	pages    prometheus.Counter
	batches  prometheus.Counter
	duration prometheus.Histogram
	batchDur prometheus.Histogram
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Source archives processed, by result (converted, empty, skipped, failed)",
			},
			[]string{"result"},
		),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Pages written across all output documents",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches completed",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent converting one source archive",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		batchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time from dispatching a batch to its last file finishing",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	r.registry.MustRegister(r.files, r.pages, r.batches, r.duration, r.batchDur)
	return r
}

// ObserveFile records the outcome of one source archive.
func (r *Recorder) ObserveFile(res types.FileResult) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(string(res.Status)).Inc()
	r.pages.Add(float64(res.Pages))
	if res.Status != types.StatusSkipped {
		r.duration.Observe(res.Duration.Seconds())
	}
}

// ObserveBatch records a completed batch and how long it took.
func (r *Recorder) ObserveBatch(d time.Duration) {
	if r == nil {
		return
	}
	r.batches.Inc()
	r.batchDur.Observe(d.Seconds())
}

// WriteTextfile writes the current values to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
