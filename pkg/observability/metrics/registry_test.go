package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_RecordOutcome(t *testing.T) {
	r := NewRegistry()

	r.RecordOutcome("append", "created")
	r.RecordOutcome("append", "created")
	r.RecordOutcome("update_fields", "item_not_found")

	if got := testutil.ToFloat64(r.updates.WithLabelValues("append", "created")); got != 2 {
		t.Fatalf("expected 2 append/created, got %v", got)
	}
	if got := testutil.ToFloat64(r.updates.WithLabelValues("update_fields", "item_not_found")); got != 1 {
		t.Fatalf("expected 1 update_fields/item_not_found, got %v", got)
	}
}

func TestRegistry_RecordHTTP(t *testing.T) {
	r := NewRegistry()

	r.IncInFlight()
	r.RecordHTTP(http.MethodPost, "/api/food/:truckId", http.StatusCreated, 15*time.Millisecond)
	r.DecInFlight()

	if got := testutil.ToFloat64(r.requests.WithLabelValues("POST", "/api/food/:truckId", "201")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
	if got := testutil.CollectAndCount(r.requestDuration, "wheretruck_http_request_duration_seconds"); got != 1 {
		t.Fatalf("expected one latency series, got %d", got)
	}
	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Fatalf("expected no in-flight requests, got %v", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.RecordOutcome("reorder", "updated")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{"wheretruck_collection_updates_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}

func TestRegistries_AreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.RecordOutcome("append", "created")

	if got := testutil.ToFloat64(b.updates.WithLabelValues("append", "created")); got != 0 {
		t.Fatalf("registries must not share counters, got %v", got)
	}
}
