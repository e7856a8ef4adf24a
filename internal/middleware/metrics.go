package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_dashboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Session guard decisions
	guardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_dashboard_session_guard_decisions_total",
			Help: "Session guard outcomes by decision",
		},
		[]string{"decision"},
	)

	// Calls to Supabase that failed for reasons other than a missing session
	providerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_dashboard_provider_errors_total",
			Help: "Failed Supabase calls by operation",
		},
		[]string{"operation"},
	)

	usersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_dashboard_users_created_total",
			Help: "Total number of users created from the dashboard",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_dashboard_rate_limited_total",
			Help: "Requests rejected by the form rate limiter",
		},
	)
)

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the chi route pattern to keep label cardinality bounded.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// IncrementUsersCreated increments the users created counter.
func IncrementUsersCreated() {
	usersCreatedTotal.Inc()
}

// IncrementProviderErrors counts a failed Supabase call.
func IncrementProviderErrors(operation string) {
	providerErrorsTotal.WithLabelValues(operation).Inc()
}
