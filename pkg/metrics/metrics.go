// Package metrics exposes Prometheus instrumentation for the client core,
// the façades, the offline queue and the self-test runner. Every method is
// safe to call on a nil *Metrics, which disables recording.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omega"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
	QueueDelivered  prometheus.Counter
	QueueRequeued   prometheus.Counter
	SelfTestRuns    *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Backend requests by client, method and status code (0 = no response).",
		}, []string{"client", "method", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"client"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Retries scheduled after a failed request.",
		}, []string{"client"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"client", "result"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "facade",
			Name:      "fallbacks_total",
			Help:      "Façade reads served from a fallback tier (cache, mock, default).",
		}, []string{"resource", "tier"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Outbound messages waiting for delivery.",
		}),
		QueueDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "delivered_total",
			Help:      "Queued messages delivered by a retry sweep.",
		}),
		QueueRequeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "requeued_total",
			Help:      "Queued messages that failed again and were re-queued.",
		}),
		SelfTestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selftest",
			Name:      "runs_total",
			Help:      "Self-test runs by overall verdict.",
		}, []string{"overall"}),
	}
}

// ObserveRequest records one backend request.
func (m *Metrics) ObserveRequest(client, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(client, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(client).Observe(elapsed.Seconds())
}

// RetryScheduled records a retry.
func (m *Metrics) RetryScheduled(client string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(client).Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(client string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(client, result).Inc()
}

// Fallback records a read served from tier instead of the live backend.
func (m *Metrics) Fallback(resource, tier string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(resource, tier).Inc()
}

// QueueSwept records the outcome of one retry sweep.
func (m *Metrics) QueueSwept(delivered, requeued, depth int) {
	if m == nil {
		return
	}
	m.QueueDelivered.Add(float64(delivered))
	m.QueueRequeued.Add(float64(requeued))
	m.QueueDepth.Set(float64(depth))
}

// SetQueueDepth records the current queue length.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// SelfTestCompleted records a self-test verdict.
func (m *Metrics) SelfTestCompleted(overall string) {
	if m == nil {
		return
	}
	m.SelfTestRuns.WithLabelValues(overall).Inc()
}
