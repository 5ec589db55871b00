// Package metrics exposes Prometheus instrumentation for the auth
// service: HTTP traffic plus the domain counters (logins, lockouts,
// token refreshes).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authcore_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authcore_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_lockouts_total",
		Help: "Accounts locked after repeated login failures.",
	})

	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_token_refreshes_total",
			Help: "Refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_cache_ops_total",
			Help: "Cache reads by result.",
		},
		[]string{"op", "result"},
	)
)

// Init registers the collectors with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginsTotal, lockoutsTotal, refreshesTotal, cacheOpsTotal)
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin records a login attempt outcome: "success", "invalid",
// "locked" or "error".
func ObserveLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLockout records a new account lockout.
func ObserveLockout() {
	lockoutsTotal.Inc()
}

// ObserveRefresh records a refresh attempt outcome.
func ObserveRefresh(outcome string) {
	refreshesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache read result: "hit", "miss" or "error".
func ObserveCache(op, result string) {
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}

// Instrument wraps a handler with traffic metrics. Path is the routing
// pattern when available so cardinality stays bounded.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
