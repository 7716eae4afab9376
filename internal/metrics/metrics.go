// Package metrics exposes Prometheus counters for parse outcomes and HTTP
// traffic.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/large-farva/tlecheck/internal/tle"
)

var (
	parsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecheck_parses_total",
			Help: "Element sets run through the parser, by final state.",
		},
		[]string{"final_state"},
	)

	issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecheck_issues_total",
			Help: "Issues raised by the parser.",
		},
		[]string{"severity", "code"},
	)

	recoveryActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecheck_recovery_actions_total",
			Help: "Recovery actions taken by the parser.",
		},
		[]string{"action"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlecheck_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlecheck_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(parsesTotal)
	prometheus.MustRegister(issuesTotal)
	prometheus.MustRegister(recoveryActionsTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Observe counts one state-machine result.
func Observe(res tle.Result) {
	parsesTotal.WithLabelValues(res.FinalState.String()).Inc()
	for _, is := range res.Issues() {
		issuesTotal.WithLabelValues(string(is.Severity), string(is.Code)).Inc()
	}
	for _, a := range res.RecoveryActions {
		recoveryActionsTotal.WithLabelValues(string(a.Action)).Inc()
	}
}

// ObserveIssues counts issues from the validation-first path, which has no
// final state of its own.
func ObserveIssues(ok bool, issues []tle.Issue) {
	state := tle.StateCompleted
	if !ok {
		state = tle.StateError
	}
	parsesTotal.WithLabelValues(state.String()).Inc()
	for _, is := range issues {
		issuesTotal.WithLabelValues(string(is.Severity), string(is.Code)).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes keeps the path label bounded; anything else is "other".
var knownRoutes = map[string]bool{
	"/healthz":         true,
	"/metrics":         true,
	"/ws":              true,
	"/api/status":      true,
	"/api/version":     true,
	"/api/config":      true,
	"/api/config-list": true,
	"/api/logs":        true,
	"/api/stats":       true,
	"/api/system":      true,
	"/api/parse":       true,
	"/api/validate":    true,
	"/api/checksum":    true,
	"/api/catalog":     true,
	"/api/reload":      true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the wrapped writer so WebSocket upgrades work
// behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer cannot hijack")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		path := normalizeRoute(r.URL.Path)
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
