package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	reg     *prometheus.Registry
	metrics *Metrics
}

func (s *MetricsTestSuite) SetupTest() {
	s.reg = prometheus.NewRegistry()
	s.metrics = New(s.reg)
}

func (s *MetricsTestSuite) TestRequestCounters() {
	s.metrics.ObserveRequest("system", "GET", 200, 20*time.Millisecond)
	s.metrics.ObserveRequest("system", "GET", 200, 30*time.Millisecond)
	s.metrics.ObserveRequest("system", "GET", 0, time.Millisecond)
	s.metrics.RetryScheduled("system")

	s.InDelta(2, testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("system", "GET", "200")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("system", "GET", "0")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.RetriesTotal.WithLabelValues("system")), 0)
}

func (s *MetricsTestSuite) TestCacheAndFallbacks() {
	s.metrics.CacheLookup("ally", true)
	s.metrics.CacheLookup("ally", false)
	s.metrics.Fallback("nodes", "cache")

	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("ally", "hit")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("ally", "miss")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.FallbacksTotal.WithLabelValues("nodes", "cache")), 0)
}

func (s *MetricsTestSuite) TestQueueAndSelfTest() {
	s.metrics.QueueSwept(2, 1, 1)
	s.metrics.SelfTestCompleted("DEGRADED")

	s.InDelta(2, testutil.ToFloat64(s.metrics.QueueDelivered), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.QueueRequeued), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.QueueDepth), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.SelfTestRuns.WithLabelValues("DEGRADED")), 0)
}

func (s *MetricsTestSuite) TestNilMetricsIsNoop() {
	var m *Metrics
	s.NotPanics(func() {
		m.ObserveRequest("x", "GET", 200, time.Second)
		m.RetryScheduled("x")
		m.CacheLookup("x", true)
		m.Fallback("x", "mock")
		m.QueueSwept(1, 1, 1)
		m.SetQueueDepth(3)
		m.SelfTestCompleted("OK")
	})
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}
