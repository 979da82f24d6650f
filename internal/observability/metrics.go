package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and the
// integrity checks behind it.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	driftTotal      *prometheus.CounterVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keystone_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "keystone_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keystone_integrity_rejections_total",
		Help: "Writes refused by an integrity check, partitioned by check and rejection code.",
	}, []string{"check", "code"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keystone_integrity_drift_total",
		Help: "Cached values found disagreeing with replayed history, by scan.",
	}, []string{"scan"})
	registry.MustRegister(requests, duration, rejections, drift)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		rejections:      rejections,
		driftTotal:      drift,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
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

// IntegrityRejection counts one refused write.
func (m *Metrics) IntegrityRejection(check, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(check, code).Inc()
}

// checkForCode groups rejection codes under the check that raised them.
var checkForCode = map[string]string{
	"NEGATIVE_STOCK_PREVENTED":     "stock",
	"INSUFFICIENT_AVAILABLE_STOCK": "stock",
	"INVENTORY_NOT_FOUND":          "stock",
	"DIRECT_EDIT_BLOCKED":          "balance_guard",
	"EMPTY_ENTRY_SET":              "double_entry",
	"DOUBLE_ENTRY_VIOLATION":       "double_entry",
	"PERIOD_LOCKED":                "period_lock",
	"ORDER_LOCKED":                 "order_mutability",
	"ORDER_PARTIALLY_LOCKED":       "order_mutability",
	"BALANCE_SHEET_IMBALANCE":      "balance_sheet",
	"HISTORICAL_STATEMENT_LOCKED":  "historical_recalc",
	"CREDIT_LIMIT_EXCEEDED":        "credit_limit",
}

// ObserveRejection counts a refused write by its machine code, resolving
// the owning check. Unknown codes land under "other".
func (m *Metrics) ObserveRejection(code string) {
	check, ok := checkForCode[code]
	if !ok {
		check = "other"
	}
	m.IntegrityRejection(check, code)
}

// DriftDetected counts one cached value that disagreed with replay.
func (m *Metrics) DriftDetected(scan string) {
	if m == nil {
		return
	}
	m.driftTotal.WithLabelValues(scan).Inc()
}

// Registerer exposes the registry for custom collectors.
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

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
