// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic and for the
// contact pipeline. Label sets are kept bounded:
//
//   - method: HTTP method verb
//   - path:   the registered Gin route, or "unmatched" when no route matched
//     (raw URLs of 404s would give unbounded cardinality)
//   - status: numeric status code as a string
//   - outcome: one of the Contact* constants below
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Contact submission outcomes used as the "outcome" label.
const (
	ContactSucceeded      = "succeeded"
	ContactReplayed       = "replayed"
	ContactInvalid        = "validation_failed"
	ContactRateLimited    = "rate_limited"
	ContactDispatchFailed = "dispatch_failed"
	ContactKeyConflict    = "idempotency_conflict"
)

// unmatchedPath labels requests that hit no registered route.
const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	contactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by terminal outcome.",
		},
		[]string{"outcome"},
	)

	throttled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_throttled_total",
			Help: "Requests rejected by the global token bucket.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, contactSubmissions, throttled)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveContact counts one contact submission with the given outcome.
func ObserveContact(outcome string) {
	contactSubmissions.WithLabelValues(outcome).Inc()
}
