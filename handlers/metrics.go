package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts served requests.
	// Labels: method, route (chi route pattern), status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests served",
	}, []string{"method", "route", "status"})

	// httpLatency measures handler latency in seconds.
	// Labels: method, route
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sixchan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	threadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "ledger",
		Name:      "threads_created_total",
		Help:      "Total threads created",
	})

	resesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "ledger",
		Name:      "reses_posted_total",
		Help:      "Total reses appended, opening reses included",
	})

	// postsRejected counts rejected appends.
	// Labels: reason (thread_full, conflict, invalid)
	postsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "ledger",
		Name:      "posts_rejected_total",
		Help:      "Total rejected thread or res posts by reason",
	}, []string{"reason"})

	reportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "moderation",
		Name:      "reports_submitted_total",
		Help:      "Total reports submitted",
	})

	// reportsResolved counts closed reports.
	// Labels: decision (safe, redact)
	reportsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "moderation",
		Name:      "reports_resolved_total",
		Help:      "Total reports closed by moderator decision",
	}, []string{"decision"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sixchan",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by the rate limiter",
	})
)

// Metrics records request counts and latency keyed by route pattern, so
// ids in paths do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
