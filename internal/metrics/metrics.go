// Package metrics exposes Prometheus collectors for site scans.
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
	pagesTotal                 *prometheus.CounterVec
	bytesTotal                 *prometheus.CounterVec
	rendersTotal               *prometheus.CounterVec
	probesTotal                *prometheus.CounterVec
	checksTotal                *prometheus.CounterVec
	retriesTotal               *prometheus.CounterVec
	scanScore                  prometheus.Histogram
	scanDurationSeconds        prometheus.Histogram
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_pages_total",
				Help: "Pages crawled, labeled by site and status class.",
			},
			[]string{"site", "status"},
		)

		bytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_bytes_total",
				Help: "Markup bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		rendersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_renders_total",
				Help: "Headless render escalations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_probes_total",
				Help: "Bulk existence probes, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_check_results_total",
				Help: "Check results produced, labeled by status.",
			},
			[]string{"status"},
		)

		retriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteaudit_service_retries_total",
				Help: "Retries issued against external services.",
			},
			[]string{"service"},
		)

		scanScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "siteaudit_scan_score",
				Help:    "Distribution of final scan scores.",
				Buckets: []float64{50, 60, 70, 80, 90, 95, 100},
			},
		)

		scanDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "siteaudit_scan_duration_seconds",
				Help:    "Wall time of complete scans.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteaudit_rate_limit_delays_seconds",
				Help:    "Histogram of politeness wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
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

// StatusClass buckets an HTTP status into "2xx", "4xx", ... or "error" for 0.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records one crawled page.
func ObserveCrawl(site string, status int, bytesFetched int) {
	Init()
	sanitized := SanitizeSite(site)
	pagesTotal.WithLabelValues(sanitized, StatusClass(status)).Inc()
	if bytesFetched > 0 {
		bytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
}

// ObserveRender records a render escalation outcome ("ok", "error", "unavailable").
func ObserveRender(outcome string) {
	Init()
	rendersTotal.WithLabelValues(outcome).Inc()
}

// ObserveProbe records a bulk probe outcome ("ok", "broken", "forbidden").
func ObserveProbe(kind, outcome string) {
	Init()
	probesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveCheck records a check result status.
func ObserveCheck(status string) {
	Init()
	checksTotal.WithLabelValues(status).Inc()
}

// ObserveRetry records one retry against service.
func ObserveRetry(service string) {
	Init()
	retriesTotal.WithLabelValues(service).Inc()
}

// ObserveScan records the score and wall time of a finished scan.
func ObserveScan(score int, duration time.Duration) {
	Init()
	scanScore.Observe(float64(score))
	scanDurationSeconds.Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
