// Package jobmetrics instruments background jobs and sheet imports.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs and imports.
type Metrics struct {
	runs           *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	imports        *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	importDuration prometheus.Histogram
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveImport records one finished sheet import.
func (m *Metrics) ObserveImport(outcome string, imported, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	if imported > 0 {
		m.importRows.WithLabelValues("imported").Add(float64(imported))
	}
	if failed > 0 {
		m.importRows.WithLabelValues("failed").Add(float64(failed))
	}
	m.importDuration.Observe(elapsed.Seconds())
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "productsheet_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "productsheet_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "productsheet_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	imports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "productsheet_imports_total",
		Help: "Sheet imports partitioned by outcome.",
	}, []string{"outcome"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "productsheet_import_rows_total",
		Help: "Rows handed to the bulk importer partitioned by result.",
	}, []string{"result"})
	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "productsheet_import_duration_seconds",
		Help:    "End to end duration of sheet imports.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	registerer.MustRegister(runs, failures, duration, imports, importRows, importDuration)
	return &Metrics{
		runs:           runs,
		failures:       failures,
		duration:       duration,
		imports:        imports,
		importRows:     importRows,
		importDuration: importDuration,
	}
}
