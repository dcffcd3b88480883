// Package observability exposes Prometheus metrics for the console.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the console's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiCalls        *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	superseded      *prometheus.CounterVec
	submitConflicts *prometheus.CounterVec
}

// NewMetrics initialises the registry and every metric.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "HTTP requests served by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_api_calls_total",
		Help: "Calls to the business API by method, resource and status class.",
	}, []string{"method", "resource", "class"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_api_call_duration_seconds",
		Help:    "Business API call duration by resource.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_list_superseded_total",
		Help: "List loads discarded because a newer load was issued.",
	}, []string{"screen"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_submit_conflicts_total",
		Help: "Saves refused because the same record was already being saved.",
	}, []string{"screen"})
	registry.MustRegister(requests, duration, apiCalls, apiDuration, superseded, conflicts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiCalls:        apiCalls,
		apiDuration:     apiDuration,
		superseded:      superseded,
		submitConflicts: conflicts,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPICall records one business API call. Status 0 means the call
// never got a response.
func (m *Metrics) ObserveAPICall(method, resource string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(method, resource, statusClass(status)).Inc()
	m.apiDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// ObserveSuperseded counts a discarded list load.
func (m *Metrics) ObserveSuperseded(screen string) {
	if m == nil {
		return
	}
	m.superseded.WithLabelValues(screen).Inc()
}

// ObserveSubmitConflict counts a refused duplicate save.
func (m *Metrics) ObserveSubmitConflict(screen string) {
	if m == nil {
		return
	}
	m.submitConflicts.WithLabelValues(screen).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
