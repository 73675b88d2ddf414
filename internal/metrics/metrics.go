// Package metrics holds the Prometheus collectors of the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every method is a no-op then.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	backendDuration *prometheus.HistogramVec
	resolverOutcome *prometheus.CounterVec
	legacyShim      *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Inbound HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of calls to the backend API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "collection", "status"}),
		resolverOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_outcomes_total",
			Help: "Relationship resolutions by winning strategy (none when empty).",
		}, []string{"source", "target", "strategy"}),
		legacyShim: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "legacy_shim_total",
			Help: "Filtered list calls that fell back to a legacy nested endpoint.",
		}, []string{"collection"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.backendDuration, m.resolverOutcome, m.legacyShim)
	return m
}

func (m *Metrics) ObserveBackend(method, collection string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.backendDuration.WithLabelValues(method, collection, label).Observe(d.Seconds())
}

func (m *Metrics) ResolverOutcome(source, target, strategy string) {
	if m == nil {
		return
	}
	m.resolverOutcome.WithLabelValues(source, target, strategy).Inc()
}

func (m *Metrics) LegacyShim(collection string) {
	if m == nil {
		return
	}
	m.legacyShim.WithLabelValues(collection).Inc()
}

// Middleware records request counts and latency keyed by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
