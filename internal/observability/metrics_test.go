package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordPipelineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTick(TickOK, 5*time.Millisecond)
	m.ObserveTick(TickOK, 7*time.Millisecond)
	m.ObserveTick(TickPersistFailed, time.Millisecond)
	if got := testutil.ToFloat64(m.ticks.WithLabelValues(TickOK)); got != 2 {
		t.Fatalf("expected 2 ok ticks, got %f", got)
	}
	if got := testutil.ToFloat64(m.ticks.WithLabelValues(TickPersistFailed)); got != 1 {
		t.Fatalf("expected 1 failed tick, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.tickDuration); samples != 1 {
		t.Fatalf("expected one histogram series, got %d", samples)
	}

	m.SubscriberAttached()
	m.SubscriberAttached()
	m.SubscriberDetached(true)
	if got := testutil.ToFloat64(m.subscribers); got != 1 {
		t.Fatalf("expected 1 subscriber, got %f", got)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Fatalf("expected 1 dropped subscriber, got %f", got)
	}

	m.ObserveDeliveries(3)
	m.ObserveDeliveries(0)
	if got := testutil.ToFloat64(m.deliveries); got != 3 {
		t.Fatalf("expected 3 deliveries, got %f", got)
	}

	m.ObservePersisted(time.Unix(1700000000, 0), 999)
	if got := testutil.ToFloat64(m.lastSampleAt); got != 1700000000 {
		t.Fatalf("unexpected last sample time %f", got)
	}
	if got := testutil.ToFloat64(m.latestLatency); got != 999 {
		t.Fatalf("unexpected latency gauge %f", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveTick(TickOK, time.Second)
	m.ObservePersisted(time.Now(), 1)
	m.ObserveDeliveries(1)
	m.SubscriberAttached()
	m.SubscriberDetached(false)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveTick(TickAbandoned, 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `sysscope_ticks_total{result="abandoned"} 1`) {
		t.Fatalf("exposition missing tick counter:\n%s", body)
	}
}
