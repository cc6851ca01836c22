// Package metrics holds the Prometheus collectors shared by the
// submission API and the worker dispatcher: request counts/latency on the
// HTTP side, job outcome counts and pipeline call latency on the worker
// side.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_http_requests_total",
		Help: "Total HTTP requests handled by the submission API, by route and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_http_request_duration_seconds",
		Help:    "Submission API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	TasksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_tasks_dispatched_total",
		Help: "Total worker task executions, by kind and outcome.",
	}, []string{"kind", "outcome"})

	PipelineCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_pipeline_call_duration_seconds",
		Help:    "Time spent inside a pipeline's Call, by pipeline kind.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 240, 360},
	}, []string{"pipeline"})
)

// Instrument wraps next to record HTTPRequestsTotal and
// HTTPRequestDuration for every request, labeled by the chi route
// pattern so cardinality stays bounded by the route table, not by path
// parameters.
func Instrument(routePattern string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		HTTPRequestsTotal.WithLabelValues(routePattern, r.Method, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(routePattern, r.Method).Observe(time.Since(start).Seconds())
	}
}

// ChiMiddleware is the router-level equivalent of Instrument: it reads the
// matched route pattern out of chi's context after the handler runs, so
// one registration covers every route instead of wrapping each by hand.
func ChiMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
