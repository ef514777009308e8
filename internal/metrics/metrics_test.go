package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBusMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)

	m.EventPublished("inprocess", "OrderPlaced")
	m.EventPublished("inprocess", "OrderPlaced")
	m.HandlerFailed("OrderPlaced", "reserve-stock", 3*time.Millisecond)
	m.HandlerSucceeded("OrderPlaced", "reserve-stock", time.Millisecond)

	if got := testutil.ToFloat64(m.Published.WithLabelValues("inprocess", "OrderPlaced")); got != 2 {
		t.Fatalf("published: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.HandlerFailures.WithLabelValues("OrderPlaced")); got != 1 {
		t.Fatalf("failures: want=1 got=%v", got)
	}
	if got := testutil.CollectAndCount(m.HandlerLatency); got != 1 {
		t.Fatalf("latency series: want=1 got=%d", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)
	m.EventPublished("redis", "PaymentSucceeded")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `webshop_events_published_total{bus="redis",event_type="PaymentSucceeded"} 1`) {
		t.Fatalf("body does not expose the counter:\n%s", rec.Body.String())
	}
}
