// Package telemetry exposes Prometheus counters and histograms for dataset
// loads, trend scans and notebook runs.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradedash_dataset_loads_total", Help: "Dataset loads by source and result"},
		[]string{"source", "result"},
	)
	TrendFilesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradedash_trend_files_skipped_total", Help: "Run files skipped by the trend scanner"},
	)
	NotebookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradedash_notebook_duration_seconds",
			Help:    "Notebook execution time by step and result",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"step", "result"},
	)
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradedash_runs_total", Help: "Batch runs by status"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(DatasetLoads, TrendFilesSkipped, NotebookDuration, Runs)
}

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveNotebook records one notebook step
func ObserveNotebook(step string, started time.Time, err error) {
	NotebookDuration.WithLabelValues(step, Result(err)).Observe(time.Since(started).Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
