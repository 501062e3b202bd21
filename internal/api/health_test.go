package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		mqtt       ConnectionStatus
		wantCode   int
		wantStatus string
		wantMQTT   string
	}{
		{"healthy_without_broker", fakeHealth{}, nil, http.StatusOK, "healthy", "not_configured"},
		{"healthy_with_broker", fakeHealth{}, fakeConn{connected: true}, http.StatusOK, "healthy", "ok"},
		{"degraded_broker_down", fakeHealth{}, fakeConn{}, http.StatusOK, "degraded", "disconnected"},
		{"unhealthy_db_down", fakeHealth{err: errors.New("dial tcp: refused")}, fakeConn{connected: true}, http.StatusServiceUnavailable, "unhealthy", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.mqtt, "s3", "v1.2.3", time.Now().Add(-time.Minute))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("JSON decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Checks["mqtt"] != tt.wantMQTT {
				t.Errorf("mqtt check = %q, want %q", body.Checks["mqtt"], tt.wantMQTT)
			}
			if body.Checks["storage"] != "s3" || body.Version != "v1.2.3" {
				t.Errorf("body = %+v", body)
			}
			if body.UptimeSeconds < 59 {
				t.Errorf("uptime = %d, want >= 59", body.UptimeSeconds)
			}
		})
	}
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	rec := serve(&mockService{}, httptest.NewRequest("GET", "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID on every response")
	}

	// Record one request so the route-labelled counter has a sample.
	serve(&mockService{}, httptest.NewRequest("GET", "/transcription/abc", nil))
	rec = serve(&mockService{}, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "clinic_engine_http_requests_total") {
		t.Error("metrics output missing clinic_engine_http_requests_total")
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	rec := serve(&mockService{}, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
