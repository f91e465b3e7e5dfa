package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision("forbidden", "users.list")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "# HELP bank_authz_decisions_total") {
		t.Fatalf("expected body to describe bank_authz_decisions_total, got: %s", body)
	}
	if strings.Contains(body, "bank_rbac_seed_changes_total") {
		t.Fatalf("unobserved vectors must not be exported, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
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
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestObserveDecisionCountsByOutcomeAndRule(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveDecision("allow", "accounts.list")
	metrics.ObserveDecision("allow", "accounts.list")
	metrics.ObserveDecision("unauthenticated", "")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, `bank_authz_decisions_total{outcome="allow",rule="accounts.list"} 2`) {
		t.Fatalf("expected allow decisions to be counted, got: %s", body)
	}
	if !strings.Contains(body, `bank_authz_decisions_total{outcome="unauthenticated",rule="none"} 1`) {
		t.Fatalf("expected empty rule to be reported as none, got: %s", body)
	}
}

func TestObserveSeedIgnoresZeroCounts(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveSeed("roles_created", 0)
	metrics.ObserveSeed("permissions_created", 13)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if strings.Contains(body, `kind="roles_created"`) {
		t.Fatalf("zero counts must not create a series, got: %s", body)
	}
	if !strings.Contains(body, `bank_rbac_seed_changes_total{kind="permissions_created"} 13`) {
		t.Fatalf("expected seed counter, got: %s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveDecision("allow", "x")
	metrics.ObserveSeed("roles_created", 1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
