package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the storefront.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	stockMutations *prometheus.CounterVec
	alertsOpened   *prometheus.CounterVec
	alertsResolved prometheus.Counter
	salesTotal     *prometheus.CounterVec
	salesRevenue   *prometheus.CounterVec
	imeiMatches    *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and business collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration per route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		stockMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stock_mutations_total",
			Help: "Committed stock mutations by kind.",
		}, []string{"kind"}),
		alertsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stock_alerts_opened_total",
			Help: "Stock alerts opened by kind.",
		}, []string{"kind"}),
		alertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_stock_alerts_resolved_total",
			Help: "Stock alerts resolved after restocking.",
		}),
		salesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_sales_total",
			Help: "Committed sales by payment method.",
		}, []string{"method"}),
		salesRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_sales_revenue_euros_total",
			Help: "Sale totals in euros by payment method.",
		}, []string{"method"}),
		imeiMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_imei_matches_total",
			Help: "Showcase IMEI lookups by the rule that matched.",
		}, []string{"rule"}),
	}
	registry.MustRegister(
		m.requestsTotal, m.requestDuration,
		m.stockMutations, m.alertsOpened, m.alertsResolved,
		m.salesTotal, m.salesRevenue, m.imeiMatches,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Middleware records metrics for every HTTP request.
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

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// StockMutation counts one committed mutation.
func (m *Metrics) StockMutation(kind string) {
	if m == nil {
		return
	}
	m.stockMutations.WithLabelValues(kind).Inc()
}

// AlertOpened counts a newly opened stock alert.
func (m *Metrics) AlertOpened(kind string) {
	if m == nil {
		return
	}
	m.alertsOpened.WithLabelValues(kind).Inc()
}

// AlertsResolved counts alerts closed by a restock.
func (m *Metrics) AlertsResolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsResolved.Add(float64(n))
}

// SaleRecorded counts a committed sale and its total.
func (m *Metrics) SaleRecorded(method string, total float64) {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues(method).Inc()
	if total > 0 {
		m.salesRevenue.WithLabelValues(method).Add(total)
	}
}

// IMEIMatch counts the rule that resolved a showcase lookup.
func (m *Metrics) IMEIMatch(rule string) {
	if m == nil {
		return
	}
	m.imeiMatches.WithLabelValues(rule).Inc()
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
