package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
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

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// knownRoutes are exact-match paths that pass through unchanged.
var knownRoutes = map[string]bool{
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/api/v1/reset":        true,
	"/api/v1/speed":        true,
	"/api/v1/pause":        true,
	"/api/v1/resume":       true,
	"/api/v1/bodies":       true,
	"/api/v1/crafts":       true,
	"/api/v1/prediction":   true,
	"/api/v1/stream/world": true,
}

// normalizeRoute collapses a request path into a bounded-cardinality
// Prometheus label: known static routes pass through, craft-id-scoped
// routes collapse to a templated form, and anything else (bot scans,
// typos, unknown paths) collapses to "other" — a request storm against
// nonexistent paths must not be able to explode the metric's label set.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}

	const craftsPrefix = "/api/v1/crafts/"
	if rest, ok := strings.CutPrefix(path, craftsPrefix); ok {
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) >= 1 && parts[0] != "" {
			suffix := ""
			if len(parts) == 2 {
				suffix = "/" + parts[1]
			}
			return craftsPrefix + "{craft_id}" + suffix
		}
	}

	const streamTransferPrefix = "/api/v1/stream/transfer/"
	if rest, ok := strings.CutPrefix(path, streamTransferPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return streamTransferPrefix + "{craft_id}"
	}

	return "other"
}
