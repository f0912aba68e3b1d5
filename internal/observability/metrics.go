// Package observability provides Prometheus metrics for downloads and the HTTP API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pydown"

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Download metrics
	DownloadsStarted   *prometheus.CounterVec
	DownloadsCompleted *prometheus.CounterVec
	DownloadsFailed    *prometheus.CounterVec
	DownloadsInFlight  prometheus.Gauge
	DownloadDuration   *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a fresh registry, so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DownloadsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "started_total",
			Help:      "Total number of downloads started",
		}, []string{"mode"}),
		DownloadsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "completed_total",
			Help:      "Total number of downloads that produced an output file",
		}, []string{"mode"}),
		DownloadsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "failed_total",
			Help:      "Total number of downloads that failed, by error kind",
		}, []string{"mode", "kind"}),
		DownloadsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "in_flight",
			Help:      "Number of downloads currently running",
		}),
		DownloadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Wall time of a download including post-processing",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"mode", "outcome"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// DownloadStarted records a download leaving validation
func (m *Metrics) DownloadStarted(mode string) {
	if m == nil {
		return
	}
	m.DownloadsStarted.WithLabelValues(mode).Inc()
	m.DownloadsInFlight.Inc()
}

// DownloadCompleted records a successful download
func (m *Metrics) DownloadCompleted(mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DownloadsCompleted.WithLabelValues(mode).Inc()
	m.DownloadsInFlight.Dec()
	m.DownloadDuration.WithLabelValues(mode, "success").Observe(elapsed.Seconds())
}

// DownloadFailed records a failed download
func (m *Metrics) DownloadFailed(mode, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DownloadsFailed.WithLabelValues(mode, kind).Inc()
	m.DownloadsInFlight.Dec()
	m.DownloadDuration.WithLabelValues(mode, "failure").Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Gatherer exposes the underlying registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
