// Package metrics exposes Prometheus collectors for the filing pipeline.
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
	pollCyclesTotal        *prometheus.CounterVec
	feedEntriesTotal       *prometheus.CounterVec
	filingsProcessedTotal  *prometheus.CounterVec
	downloadDelaySeconds   prometheus.Histogram
	aiRequestsTotal        *prometheus.CounterVec
	broadcastDroppedTotal  prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec
	activeFilings          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pollCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpulse_poll_cycles_total",
				Help: "Total number of feed poll cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		feedEntriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpulse_feed_entries_total",
				Help: "Total feed entries observed, labeled by disposition.",
			},
			[]string{"disposition"},
		)

		filingsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpulse_filings_processed_total",
				Help: "Total filings processed, labeled by segment and status.",
			},
			[]string{"segment", "status"},
		)

		downloadDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secpulse_download_throttle_delay_seconds",
				Help:    "Histogram of waits imposed by the global download limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		aiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secpulse_ai_requests_total",
				Help: "Total generative classifier requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		broadcastDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "secpulse_broadcast_dropped_total",
				Help: "Total broadcast events dropped due to slow subscribers.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeFilings = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "secpulse_active_filings",
				Help: "Number of filings currently in the processing pipeline.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePollCycle increments the poll cycle counter for the given outcome.
func ObservePollCycle(outcome string) {
	pollCyclesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFeedEntries adds to the feed entry counter for a disposition
// (matched, dropped, duplicate, new).
func ObserveFeedEntries(disposition string, n int) {
	if n > 0 {
		feedEntriesTotal.WithLabelValues(disposition).Add(float64(n))
	}
}

// ObserveFiling increments the processed-filings counter.
func ObserveFiling(segment, status string) {
	filingsProcessedTotal.WithLabelValues(segment, status).Inc()
}

// ObserveDownloadDelay records a wait imposed by the download limiter.
func ObserveDownloadDelay(d time.Duration) {
	downloadDelaySeconds.Observe(d.Seconds())
}

// ObserveAIRequest increments the generative request counter for an outcome
// (ok, parse_fallback, error, timeout).
func ObserveAIRequest(outcome string) {
	aiRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBroadcastDrop counts an event dropped on a slow subscriber.
func ObserveBroadcastDrop() {
	broadcastDroppedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveFilings increments the in-pipeline gauge.
func IncActiveFilings() {
	activeFilings.Inc()
}

// DecActiveFilings decrements the in-pipeline gauge.
func DecActiveFilings() {
	activeFilings.Dec()
}
