// Package metrics exposes Prometheus counters for downloads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the download collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	downloadsTotal  *prometheus.CounterVec
	attemptsTotal   *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	durationSeconds prometheus.Histogram
	missingFields   *prometheus.CounterVec
}

// New creates a Recorder with its own registry, including the Go and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gribfetch_downloads_total",
				Help: "Processed files by outcome.",
			},
			[]string{"outcome"},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gribfetch_download_attempts_total",
				Help: "Download attempts by outcome.",
			},
			[]string{"outcome"},
		),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gribfetch_bytes_total",
			Help: "Bytes written to assembled files.",
		}),
		durationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gribfetch_download_duration_seconds",
			Help:    "Time spent per download attempt.",
			Buckets: prometheus.DefBuckets,
		}),
		missingFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gribfetch_fields_missing_total",
				Help: "Configured fields not found in an inventory.",
			},
			[]string{"field"},
		),
	}

	r.registry.MustRegister(
		r.downloadsTotal,
		r.attemptsTotal,
		r.bytesTotal,
		r.durationSeconds,
		r.missingFields,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveAttempt records one download attempt. Its signature matches
// download.AttemptObserver.
func (r *Recorder) ObserveAttempt(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.attemptsTotal.WithLabelValues(outcome).Inc()
	r.durationSeconds.Observe(elapsed.Seconds())
}

// ObserveFile records the final outcome of one file.
func (r *Recorder) ObserveFile(outcome string, bytes int64) {
	if r == nil {
		return
	}
	r.downloadsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		r.bytesTotal.Add(float64(bytes))
	}
}

// ObserveMissing records fields that matched nothing.
func (r *Recorder) ObserveMissing(fields []string) {
	if r == nil {
		return
	}
	for _, f := range fields {
		r.missingFields.WithLabelValues(f).Inc()
	}
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
