package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("GET", "loans", 200, time.Millisecond)
		m.ResolverOutcome("asset", "loan", "direct")
		m.LegacyShim("loans")
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ResolverOutcome("asset", "loan", "heuristic_scan")
	m.ResolverOutcome("asset", "loan", "heuristic_scan")
	m.LegacyShim("cases")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `resolver_outcomes_total{source="asset",strategy="heuristic_scan",target="loan"} 2`)
	assert.Contains(t, body, `legacy_shim_total{collection="cases"} 1`)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(nil)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",route="/ping",status="200"} 1`), body)
}
