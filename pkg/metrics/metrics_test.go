package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Middleware(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(m.Middleware)
	e.GET("/api/policy/:policyId/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/api/failure/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream")
	})

	for _, target := range []string{"/api/policy/a/", "/api/policy/b/", "/api/failure/"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	expected := `
# HELP icap_dashboard_http_requests_total Total number of HTTP requests handled.
# TYPE icap_dashboard_http_requests_total counter
icap_dashboard_http_requests_total{method="GET",route="/api/failure/",status="502"} 1
icap_dashboard_http_requests_total{method="GET",route="/api/policy/:policyId/",status="204"} 2
`
	if err := testutil.GatherAndCompare(
		m.Registry(), strings.NewReader(expected), "icap_dashboard_http_requests_total",
	); err != nil {
		t.Error(err)
	}
}

func TestMetrics_Upstream(t *testing.T) {
	m := metrics.New()
	m.ObserveUpstream("policy", "GetCurrentPolicy", metrics.OutcomeSuccess, 10*time.Millisecond)
	m.ObserveUpstream("policy", "GetCurrentPolicy", metrics.OutcomeError, 10*time.Millisecond)
	m.UpstreamRetried("policy", "GetCurrentPolicy")

	expected := `
# HELP icap_dashboard_upstream_calls_total Total number of calls to upstream services.
# TYPE icap_dashboard_upstream_calls_total counter
icap_dashboard_upstream_calls_total{operation="GetCurrentPolicy",outcome="error",service="policy"} 1
icap_dashboard_upstream_calls_total{operation="GetCurrentPolicy",outcome="success",service="policy"} 1
# HELP icap_dashboard_upstream_retries_total Total number of retried upstream requests.
# TYPE icap_dashboard_upstream_retries_total counter
icap_dashboard_upstream_retries_total{operation="GetCurrentPolicy",service="policy"} 1
`
	if err := testutil.GatherAndCompare(
		m.Registry(), strings.NewReader(expected),
		"icap_dashboard_upstream_calls_total", "icap_dashboard_upstream_retries_total",
	); err != nil {
		t.Error(err)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *metrics.Metrics

	m.ObserveUpstream("policy", "GetPolicy", metrics.OutcomeSuccess, time.Second)
	m.UpstreamRetried("policy", "GetPolicy")
	m.SessionOpened("policy")
	m.SessionClosed("policy")

	called := false
	h := m.Middleware(func(c echo.Context) error {
		called = true
		return errors.New("passed")
	})
	e := echo.New()
	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err == nil {
		t.Error("error is not passed through")
	}
	if !called {
		t.Error("next is not called")
	}
}
