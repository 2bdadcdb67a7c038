package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssehub/component"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/x", h)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return rr, body
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, 0, len(statuses))
		for i, s := range statuses {
			out = append(out, component.Health{Name: string(rune('a' + i)), Status: s})
		}
		return out
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name string
		in   []component.HealthStatus
		want component.HealthStatus
	}{
		{"empty", nil, component.StatusHealthy},
		{"all healthy", []component.HealthStatus{component.StatusHealthy, component.StatusHealthy}, component.StatusHealthy},
		{"disabled ignored", []component.HealthStatus{component.StatusHealthy, component.StatusDisabled}, component.StatusHealthy},
		{"degraded", []component.HealthStatus{component.StatusDegraded, component.StatusHealthy}, component.StatusDegraded},
		{"unhealthy wins", []component.HealthStatus{component.StatusDegraded, component.StatusUnhealthy}, component.StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(checker(tc.in...)(context.Background())); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rr, body := serve(t, Health("ssehub", checker(component.StatusHealthy)))
	if rr.Code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
	if comps, ok := body["components"].([]any); !ok || len(comps) != 1 {
		t.Errorf("expected one component, got %v", body["components"])
	}

	rr, body = serve(t, Health("ssehub", checker(component.StatusUnhealthy)))
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
}

func TestReadiness(t *testing.T) {
	rr, body := serve(t, Readiness("ssehub", checker(component.StatusDegraded)))
	if rr.Code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("degraded instances still serve traffic: %d %v", rr.Code, body)
	}
	rr, body = serve(t, Readiness("ssehub", checker(component.StatusUnhealthy)))
	if rr.Code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("unexpected %d %v", rr.Code, body)
	}
}

func TestLivenessInfoVersionMetrics(t *testing.T) {
	if _, body := serve(t, Liveness("ssehub")); body["status"] != "alive" {
		t.Errorf("unexpected liveness body %v", body)
	}
	if _, body := serve(t, Info("ssehub")); body["service"] != "ssehub" || body["build"] == nil {
		t.Errorf("unexpected info body %v", body)
	}
	if _, body := serve(t, Version()); body["version"] == nil {
		t.Errorf("unexpected version body %v", body)
	}
	if _, body := serve(t, Metrics()); body["goroutines"] == nil {
		t.Errorf("unexpected metrics body %v", body)
	}
}
