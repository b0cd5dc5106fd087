// Package metrics counts what a run did and writes the result as a
// Prometheus textfile for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as the stage label.
const (
	StageLogin    = "login"
	StageClaim    = "claim"
	StageDownload = "download"
	StageUpload   = "upload"
	StageNotify   = "notify"
	StageTitle    = "title"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Recorder holds one run's metrics in a private registry.
type Recorder struct {
	reg *prometheus.Registry

	stages        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	books         prometheus.Counter
	bytes         prometheus.Counter
	lastRun       prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		stages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "packtgrab_stage_total",
			Help: "Pipeline stage outcomes",
		}, []string{"stage", "result"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "packtgrab_stage_duration_seconds",
			Help:    "Wall time spent per pipeline stage",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		books: f.NewCounter(prometheus.CounterOpts{
			Name: "packtgrab_books_downloaded_total",
			Help: "Books written to the download directory",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "packtgrab_bytes_downloaded_total",
			Help: "Bytes written to the download directory",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "packtgrab_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Stage records one outcome for stage. A nil Recorder is a no-op.
func (r *Recorder) Stage(stage, result string) {
	if r == nil {
		return
	}
	r.stages.WithLabelValues(stage, result).Inc()
}

// Observe records err as ok or failed for stage and how long it took.
func (r *Recorder) Observe(stage string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		r.Stage(stage, ResultFailed)
		return
	}
	r.Stage(stage, ResultOK)
}

// Book records one downloaded file of n bytes.
func (r *Recorder) Book(n int64) {
	if r == nil {
		return
	}
	r.books.Inc()
	r.bytes.Add(float64(n))
}

// Registry exposes the underlying registry for inspection.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile stamps the run time and writes all metrics to path
// atomically.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	r.lastRun.Set(float64(now.Unix()))
	return prometheus.WriteToTextfile(path, r.reg)
}
