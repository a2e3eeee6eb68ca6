// Package metrics exposes Prometheus collectors for the HTTP layer and the name
// endpoints.
//
// Collectors live on a Metrics value rather than package globals so tests can build
// a fresh registry each time. Every method is safe on a nil *Metrics, which lets
// callers that don't care about metrics pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "petnamer"

// Suggestion outcomes for the suggestions_total counter.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeUpstream    = "upstream_error"
	OutcomeError       = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	namesSaved   prometheus.Counter
	namesListed  prometheus.Counter
	authFailures *prometheus.CounterVec
	suggestions  *prometheus.CounterVec
}

// New registers every collector on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		namesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "names_saved_total",
			Help:      "Total number of names persisted.",
		}),
		namesListed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "names_listed_total",
			Help:      "Total number of successful name list requests.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected bearer tokens.",
		}, []string{"reason"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Total number of name suggestion requests by outcome.",
		}, []string{"outcome"}),
	}
	m.registry = reg

	reg.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.namesSaved,
		m.namesListed,
		m.authFailures,
		m.suggestions,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count, duration and in-flight requests.
// The route label is chi's matched pattern so path parameters don't explode
// label cardinality. Unmatched requests are labelled "unmatched".
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) NameSaved() {
	if m != nil {
		m.namesSaved.Inc()
	}
}

func (m *Metrics) NamesListed() {
	if m != nil {
		m.namesListed.Inc()
	}
}

// AuthFailure counts a rejected request. reason is a short fixed label such as
// "missing_token" or "invalid_token", never the raw error text.
func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) Suggestion(outcome string) {
	if m != nil {
		m.suggestions.WithLabelValues(outcome).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
