// Package metrics provides Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RefreshTicks counts refresh scheduler ticks by series name and outcome.
	RefreshTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydash_refresh_ticks_total",
		Help: "Refresh scheduler ticks by series and outcome",
	}, []string{"series", "outcome"})

	// FeedEvents counts decoded feed messages by event type.
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydash_feed_events_total",
		Help: "Feed messages processed by event type",
	}, []string{"type"})

	// FeedDecodeErrors counts feed messages that failed to decode.
	FeedDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_feed_decode_errors_total",
		Help: "Feed messages dropped due to decode errors",
	})

	// LevelsApplied counts individual price level updates applied to books.
	LevelsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_book_levels_applied_total",
		Help: "Price level updates applied to order books",
	})

	// PollCycleDuration tracks book re-sync cycle duration.
	PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polydash_poll_cycle_duration_seconds",
		Help:    "Duration of book re-sync cycles",
		Buckets: prometheus.DefBuckets,
	})

	// PollErrors counts failed per-asset book fetches.
	PollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_poll_errors_total",
		Help: "Failed book fetches during re-sync cycles",
	})

	// WriterFlushes counts history writer flushes.
	WriterFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_writer_flushes_total",
		Help: "History writer batch flushes",
	})

	// WriterRows counts history rows written.
	WriterRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_writer_rows_total",
		Help: "History rows written to the database",
	})

	// WriterErrors counts failed history batch inserts.
	WriterErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polydash_writer_errors_total",
		Help: "Failed history batch inserts",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polydash_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polydash_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label with the route pattern, not the raw path: slugs and
		// asset IDs would mint an unbounded label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
