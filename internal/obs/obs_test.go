package obs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSetupLoggingReturnsLogger(t *testing.T) {
	logger := SetupLogging("ocvd", "test")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveCacheHit("votes")
	m.ObserveCacheMiss("ledger")
	m.ObserveElectionRounds(7)
	m.ObserveArchiveQuery("fetch_transactions", 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"ocv_cache_hits_total", "ocv_cache_misses_total", "ocv_election_rounds_total", "ocv_archive_query_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %q in exposition, got:\n%s", name, body)
		}
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	m := NewMetrics()
	handler := m.HTTPMiddleware("info")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}

	exp := httptest.NewRecorder()
	m.Handler().ServeHTTP(exp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := exp.Body.String()
	if !strings.Contains(body, `route="info"`) || !strings.Contains(body, `status="I'm a teapot"`) {
		t.Fatalf("expected request counter labelled with route and status, got:\n%s", body)
	}
}
