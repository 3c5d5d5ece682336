package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBatch(BatchStats{Strategy: "polling"})
	m.RecordAccepted("polling", time.Now())
	m.RecordRejected("token_too_old")
	m.UpdateCacheSizes(1, 2)
	m.RecordEvictions("detected", 3)
	m.SetStrategiesRunning(1)
	m.UpdateStrategy("polling", 1, 1)
	m.ObserveRPC("getSlot", time.Millisecond, nil)
	m.ObserveGateway("trending", "ok")
	m.ObserveSink("postgres", "insert", time.Millisecond, nil)
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ObserveBatch(BatchStats{Strategy: "polling", Received: 3, Duplicates: 1, Replaced: 1, Latency: time.Millisecond})
	m.RecordRejected("token_too_old", "missing_metadata")
	m.RecordEvictions("detected", 0)
	m.RecordEvictions("signatures", 5)
	m.ObserveRPC("getTransaction", time.Millisecond, errors.New("boom"))
	m.ObserveGateway("trending", "cache_hit")

	if got := testutil.ToFloat64(m.RecordsReceived.WithLabelValues("polling")); got != 3 {
		t.Errorf("records received = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.DuplicatesTotal); got != 1 {
		t.Errorf("duplicates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RecordsRejected.WithLabelValues("missing_metadata")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheEvictions.WithLabelValues("signatures")); got != 5 {
		t.Errorf("evictions = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("getTransaction")); got != 1 {
		t.Errorf("rpc errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GatewayRequests.WithLabelValues("trending", "cache_hit")); got != 1 {
		t.Errorf("gateway requests = %v, want 1", got)
	}
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.UpdateCacheSizes(7, 11)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_cache_detected_size 7") {
		t.Errorf("metrics output missing cache gauge:\n%s", rec.Body.String())
	}
}
