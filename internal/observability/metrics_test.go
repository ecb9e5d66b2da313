package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/invoices")

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "payng_http_requests_total{code=\"418\",route=\"/invoices\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "payng_http_request_duration_seconds_bucket{route=\"/invoices\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestObserveGuardDecision(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveGuardDecision("redirect-unauthenticated", "anonymous")
	metrics.ObserveGuardDecision("redirect-unauthenticated", "anonymous")
	metrics.ObserveGuardDecision("authorized", "parent")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, "payng_guard_decisions_total{decision=\"redirect-unauthenticated\",role=\"anonymous\"} 2") {
		t.Fatalf("expected guard decision counter, got: %s", body)
	}
	if !strings.Contains(body, "payng_guard_decisions_total{decision=\"authorized\",role=\"parent\"} 1") {
		t.Fatalf("expected guard decision counter, got: %s", body)
	}
}
