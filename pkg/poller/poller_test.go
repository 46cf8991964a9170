package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"omega/pkg/config"
	"omega/pkg/models"
)

type fakeSource struct {
	mu     sync.Mutex
	health models.Health
	calls  map[string]*atomic.Int32
}

func newFakeSource() *fakeSource {
	f := &fakeSource{calls: map[string]*atomic.Int32{}}
	for _, r := range []string{ResourceHealth, ResourceMetrics, ResourceSensors, ResourceCommunity} {
		f.calls[r] = &atomic.Int32{}
	}
	return f
}

func (f *fakeSource) setHealth(h models.Health) {
	f.mu.Lock()
	f.health = h
	f.mu.Unlock()
}

func (f *fakeSource) GetHealth(context.Context) models.Health {
	f.calls[ResourceHealth].Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func (f *fakeSource) GetMetrics(context.Context) models.Metrics {
	f.calls[ResourceMetrics].Add(1)
	cpu := 42.0
	return models.Metrics{Origin: models.Origin{Available: true}, CPU: &cpu}
}

func (f *fakeSource) GetSensors(context.Context) models.Sensors {
	f.calls[ResourceSensors].Add(1)
	return models.Sensors{Origin: models.Origin{Degraded: true, Reason: "Service degraded (503)"}, Offline: true}
}

func (f *fakeSource) GetCommunityPosts(context.Context) models.CommunityPosts {
	f.calls[ResourceCommunity].Add(1)
	return models.CommunityPosts{Origin: models.Origin{Simulated: true}}
}

type PollerTestSuite struct {
	suite.Suite
	source *fakeSource
	cfg    *config.Config
	poller *Poller
}

func (s *PollerTestSuite) SetupTest() {
	s.source = newFakeSource()
	s.cfg = config.Defaults()
	s.cfg.Polling = config.PollingConfig{
		HealthCheck: 10 * time.Millisecond,
		Metrics:     10 * time.Millisecond,
		Sensors:     time.Hour,
		Community:   time.Hour,
	}
	s.poller = New(s.source, s.cfg)
}

func (s *PollerTestSuite) TearDownTest() {
	s.poller.Stop()
}

func (s *PollerTestSuite) TestInitialState() {
	snap := s.poller.Snapshot()
	s.Equal(models.NotConnected, snap.Connection.Status)
	s.Nil(snap.Health)
	s.Empty(snap.Connection.Endpoints)
}

func (s *PollerTestSuite) TestConnectionFromHealth() {
	s.Equal(models.NotConnected, ConnectionFromHealth(models.Health{Status: models.StateUp}))
	s.Equal(models.Connected, ConnectionFromHealth(models.Health{Origin: models.Origin{Available: true}, Status: models.StateUp}))
	s.Equal(models.Degraded, ConnectionFromHealth(models.Health{Origin: models.Origin{Available: true}, Status: models.StateDegraded}))
	s.Equal(models.Degraded, ConnectionFromHealth(models.Health{Origin: models.Origin{Available: true}, Status: models.StateDown}))
}

func (s *PollerTestSuite) TestPollAllRecordsEndpoints() {
	s.source.setHealth(models.Health{Origin: models.Origin{Available: true}, Status: models.StateUp})
	s.poller.PollAll(context.Background())

	snap := s.poller.Snapshot()
	s.Equal(models.Connected, snap.Connection.Status)
	s.True(snap.Connection.IsBackendConnected)
	s.NotNil(snap.Connection.LastPing)
	s.Require().NotNil(snap.Metrics)
	s.InDelta(42.0, *snap.Metrics.CPU, 0.001)
	s.True(snap.Sensors.Offline)

	s.Equal("up", snap.Connection.Endpoints[ResourceHealth].Status)
	s.Equal("degraded", snap.Connection.Endpoints[ResourceSensors].Status)
	s.Equal("simulated", snap.Connection.Endpoints[ResourceCommunity].Status)
	s.NotNil(snap.Connection.Endpoints[ResourceMetrics].LastCheck)

	s.source.setHealth(models.Health{Status: models.StateDown})
	s.poller.Poll(context.Background(), ResourceHealth)
	conn := s.poller.Connection()
	s.Equal(models.NotConnected, conn.Status)
	s.False(conn.IsBackendConnected)
	s.NotNil(conn.LastPing, "last successful ping is kept")
	s.Equal("down", conn.Endpoints[ResourceHealth].Status)
}

func (s *PollerTestSuite) TestLoopsPollOnTheirIntervals() {
	s.poller.Start()
	s.poller.Start()

	s.Eventually(func() bool {
		return s.source.calls[ResourceMetrics].Load() >= 3 && s.source.calls[ResourceHealth].Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.poller.Stop()
	s.Equal(int32(1), s.source.calls[ResourceSensors].Load(), "slow resources are polled once at start")

	after := s.source.calls[ResourceMetrics].Load()
	time.Sleep(30 * time.Millisecond)
	s.Equal(after, s.source.calls[ResourceMetrics].Load())
}

func (s *PollerTestSuite) TestHealthPollingDisabled() {
	s.cfg.Features.EnableHealthPolling = false
	p := New(s.source, s.cfg)
	p.Start()
	s.Eventually(func() bool {
		return s.source.calls[ResourceMetrics].Load() >= 2
	}, time.Second, 5*time.Millisecond)
	p.Stop()
	s.Equal(int32(0), s.source.calls[ResourceHealth].Load())
}

func (s *PollerTestSuite) TestReconfigureChangesInterval() {
	s.poller.Start()
	s.Eventually(func() bool {
		return s.source.calls[ResourceMetrics].Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.cfg.Polling.Metrics = time.Hour
	s.poller.Reconfigure(s.cfg)
	time.Sleep(30 * time.Millisecond)
	settled := s.source.calls[ResourceMetrics].Load()
	time.Sleep(50 * time.Millisecond)
	s.Equal(settled, s.source.calls[ResourceMetrics].Load())
}

func TestPollerSuite(t *testing.T) {
	suite.Run(t, new(PollerTestSuite))
}
