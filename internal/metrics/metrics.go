// Package metrics exposes Prometheus collectors for the listing crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal          *prometheus.CounterVec
	fetchAttemptDurationSeconds *prometheus.HistogramVec
	extractedCandidatesTotal    *prometheus.CounterVec
	runsTotal                   *prometheus.CounterVec
	recordsPersistedTotal       *prometheus.CounterVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listing_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchAttemptDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "listing_fetch_attempt_duration_seconds",
				Help:    "Histogram of single GET latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		extractedCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listing_extracted_candidates_total",
				Help: "Total number of candidates extracted, labeled by stage.",
			},
			[]string{"stage"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listing_runs_total",
				Help: "Total number of planner runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listing_records_persisted_total",
				Help: "Total number of records written, labeled by data source.",
			},
			[]string{"source"},
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

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt records one GET attempt and its classified outcome.
func ObserveFetchAttempt(address, outcome string, duration time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	site := SanitizeSite(address)
	fetchAttemptsTotal.WithLabelValues(site, outcome).Inc()
	if duration > 0 {
		fetchAttemptDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	}
}

// ObserveExtraction records how many candidates a stage produced.
func ObserveExtraction(stage string, count int) {
	if extractedCandidatesTotal == nil || count <= 0 {
		return
	}
	extractedCandidatesTotal.WithLabelValues(stage).Add(float64(count))
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(outcome string) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObservePersisted records the number of records written for a source.
func ObservePersisted(source string, count int) {
	if recordsPersistedTotal == nil || count <= 0 {
		return
	}
	recordsPersistedTotal.WithLabelValues(source).Add(float64(count))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
