package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tick outcomes recorded on sysscope_ticks_total.
const (
	TickOK            = "ok"
	TickPersistFailed = "persist_failed"
	TickAbandoned     = "abandoned"
)

// Metrics exposes distributor and registry activity. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ticks         *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	deliveries    prometheus.Counter
	subscribers   prometheus.Gauge
	dropped       prometheus.Counter
	lastSampleAt  prometheus.Gauge
	latestLatency prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sysscope_ticks_total",
			Help: "Distributor ticks by outcome.",
		}, []string{"result"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sysscope_tick_duration_seconds",
			Help:    "Time spent sampling, persisting and broadcasting one tick.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysscope_deliveries_total",
			Help: "Samples queued on subscriber buffers.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysscope_subscribers",
			Help: "Currently attached live subscribers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysscope_subscribers_dropped_total",
			Help: "Subscribers detached because their buffer was full.",
		}),
		lastSampleAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysscope_last_sample_timestamp_seconds",
			Help: "Unix time of the last persisted sample.",
		}),
		latestLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysscope_network_latency_ms",
			Help: "Latency of the last persisted sample; 999 means unreachable.",
		}),
	}
	for _, result := range []string{TickOK, TickPersistFailed, TickAbandoned} {
		m.ticks.WithLabelValues(result)
	}
	reg.MustRegister(m.ticks, m.tickDuration, m.deliveries, m.subscribers, m.dropped, m.lastSampleAt, m.latestLatency)
	return m
}

// ObserveTick records one tick outcome and its duration.
func (m *Metrics) ObserveTick(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(result).Inc()
	m.tickDuration.Observe(elapsed.Seconds())
}

// ObservePersisted records the timestamp and latency of a durable sample.
func (m *Metrics) ObservePersisted(at time.Time, latencyMS float64) {
	if m == nil {
		return
	}
	m.lastSampleAt.Set(float64(at.UnixNano()) / float64(time.Second))
	m.latestLatency.Set(latencyMS)
}

// ObserveDeliveries adds n successful subscriber deliveries.
func (m *Metrics) ObserveDeliveries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveries.Add(float64(n))
}

func (m *Metrics) SubscriberAttached() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberDetached(dropped bool) {
	if m == nil {
		return
	}
	m.subscribers.Dec()
	if dropped {
		m.dropped.Inc()
	}
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
