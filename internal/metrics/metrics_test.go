package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveResolution(t *testing.T) {
	m := New()
	m.ObserveResolution(OutcomeOK, time.Millisecond)
	m.ObserveResolution(OutcomeOK, time.Millisecond)
	m.ObserveResolution(OutcomeFallback, time.Millisecond)

	if got := testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok resolutions, got %v", got)
	}
	if got := testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeFallback)); got != 1 {
		t.Fatalf("expected 1 fallback resolution, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResolution(OutcomeError, time.Second)
	m.FileLoaded("default")
	m.ObserveRequest("/api/health", http.MethodGet, http.StatusOK, time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.FileLoaded("client_address")
	m.ObserveRequest("/api/resolve", http.MethodPost, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`policy_files_loaded_total{dimension="client_address"} 1`,
		`http_requests_total{method="POST",path="/api/resolve",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected exposition to contain %q", want)
		}
	}
}
