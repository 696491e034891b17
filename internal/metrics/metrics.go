// Package metrics exposes Prometheus collectors for the cloner service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	clonerJobsTotal            *prometheus.CounterVec
	clonerStageDurationSeconds *prometheus.HistogramVec
	clonerScrapeNodes          prometheus.Histogram
	clonerSynthAttemptsTotal   *prometheus.CounterVec
	clonerActiveWorkers        prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		clonerJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloner_jobs_total",
				Help: "Total number of clone jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		clonerStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cloner_stage_duration_seconds",
				Help:    "Duration of each pipeline stage, labeled by stage and site.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage", "site"},
		)

		clonerScrapeNodes = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cloner_scrape_nodes",
				Help:    "Visible nodes extracted per scrape.",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 1500},
			},
		)

		clonerSynthAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloner_synth_attempts_total",
				Help: "Synthesis backend calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		clonerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cloner_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the terminal job counter for the given status.
func ObserveJob(status string) {
	clonerJobsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of one pipeline stage for a site.
func ObserveStage(stage, site string, duration time.Duration) {
	clonerStageDurationSeconds.WithLabelValues(stage, site).Observe(duration.Seconds())
}

// ObserveScrapeNodes records how many visible nodes a scrape produced.
func ObserveScrapeNodes(count int) {
	clonerScrapeNodes.Observe(float64(count))
}

// ObserveSynthAttempt counts one synthesis backend call.
func ObserveSynthAttempt(outcome string) {
	clonerSynthAttemptsTotal.WithLabelValues(outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	clonerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	clonerActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
