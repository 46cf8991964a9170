// Package poller refreshes dashboard resources on per-resource intervals
// and derives the backend connection state from health results.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"omega/pkg/config"
	"omega/pkg/log"
	"omega/pkg/models"
)

const defaultInterval = 10 * time.Second

// Resource names.
const (
	ResourceHealth    = "health"
	ResourceMetrics   = "metrics"
	ResourceSensors   = "sensors"
	ResourceCommunity = "community"
)

// Source reads the polled resources. *api.Service implements it.
type Source interface {
	GetHealth(ctx context.Context) models.Health
	GetMetrics(ctx context.Context) models.Metrics
	GetSensors(ctx context.Context) models.Sensors
	GetCommunityPosts(ctx context.Context) models.CommunityPosts
}

// EndpointState is the last poll outcome of one resource.
type EndpointState struct {
	Status    string     `json:"status"`
	LastCheck *time.Time `json:"lastCheck"`
}

// Connection summarizes backend reachability.
type Connection struct {
	Status             string                   `json:"status"`
	LastPing           *time.Time               `json:"lastPing"`
	IsBackendConnected bool                     `json:"isBackendConnected"`
	Endpoints          map[string]EndpointState `json:"endpoints"`
}

// Snapshot is the latest value of every polled resource. Resources not
// polled yet are nil.
type Snapshot struct {
	Connection Connection             `json:"connection"`
	Health     *models.Health         `json:"health"`
	Metrics    *models.Metrics        `json:"metrics"`
	Sensors    *models.Sensors        `json:"sensors"`
	Community  *models.CommunityPosts `json:"community"`
}

// ConnectionFromHealth maps a health read onto a connection state.
func ConnectionFromHealth(h models.Health) string {
	switch {
	case !h.Available:
		return models.NotConnected
	case h.Status == models.StateUp:
		return models.Connected
	default:
		return models.Degraded
	}
}

func originStatus(o models.Origin) string {
	switch {
	case o.Simulated:
		return "simulated"
	case o.Forbidden:
		return "forbidden"
	case o.Degraded:
		return "degraded"
	case o.Available:
		return "up"
	default:
		return "down"
	}
}

// Poller runs one loop per resource.
type Poller struct {
	source Source
	logger zerolog.Logger

	mu        sync.RWMutex
	intervals map[string]time.Duration
	health    bool
	snap      Snapshot

	ctx     context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	once    sync.Once
}

// New creates a poller using the intervals and health-polling flag of cfg.
func New(source Source, cfg *config.Config) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		source: source,
		logger: log.Component("poller"),
		snap: Snapshot{Connection: Connection{
			Status:    models.NotConnected,
			Endpoints: make(map[string]EndpointState),
		}},
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
	}
	p.Reconfigure(cfg)
	return p
}

// Reconfigure applies new intervals. Running loops pick them up after
// their next tick.
func (p *Poller) Reconfigure(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intervals = map[string]time.Duration{
		ResourceHealth:    cfg.Polling.HealthCheck,
		ResourceMetrics:   cfg.Polling.Metrics,
		ResourceSensors:   cfg.Polling.Sensors,
		ResourceCommunity: cfg.Polling.Community,
	}
	p.health = cfg.Features.EnableHealthPolling
}

func (p *Poller) interval(resource string) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.intervals[resource]
}

// Start launches the polling loops. Each resource is polled immediately
// and then on its interval. Polls of one resource never overlap.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	health := p.health
	p.mu.Unlock()

	resources := []string{ResourceMetrics, ResourceSensors, ResourceCommunity}
	if health {
		resources = append(resources, ResourceHealth)
	}
	for _, r := range resources {
		p.wg.Add(1)
		go p.loop(r)
	}
	p.logger.Info().Strs("resources", resources).Msg("Polling started")
}

// Stop ends the loops, aborts in-flight polls and waits for them to exit.
func (p *Poller) Stop() {
	p.once.Do(func() {
		close(p.stopCh)
		p.cancel()
	})
	p.wg.Wait()
}

func (p *Poller) loop(resource string) {
	defer p.wg.Done()

	p.Poll(p.ctx, resource)

	current := p.interval(resource)
	if current <= 0 {
		current = defaultInterval
	}
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Poll(p.ctx, resource)
			if next := p.interval(resource); next > 0 && next != current {
				current = next
				ticker.Reset(current)
			}
		}
	}
}

// Poll refreshes one resource now.
func (p *Poller) Poll(ctx context.Context, resource string) {
	var origin models.Origin
	switch resource {
	case ResourceHealth:
		h := p.source.GetHealth(ctx)
		origin = h.Origin
		p.mu.Lock()
		p.snap.Health = &h
		p.applyHealth(h)
		p.mu.Unlock()
	case ResourceMetrics:
		m := p.source.GetMetrics(ctx)
		origin = m.Origin
		p.mu.Lock()
		p.snap.Metrics = &m
		p.mu.Unlock()
	case ResourceSensors:
		s := p.source.GetSensors(ctx)
		origin = s.Origin
		p.mu.Lock()
		p.snap.Sensors = &s
		p.mu.Unlock()
	case ResourceCommunity:
		c := p.source.GetCommunityPosts(ctx)
		origin = c.Origin
		p.mu.Lock()
		p.snap.Community = &c
		p.mu.Unlock()
	default:
		p.logger.Warn().Str("resource", resource).Msg("Unknown poll resource")
		return
	}

	now := time.Now()
	p.mu.Lock()
	p.snap.Connection.Endpoints[resource] = EndpointState{Status: originStatus(origin), LastCheck: &now}
	p.mu.Unlock()
	p.logger.Debug().Str("resource", resource).Bool("available", origin.Available).Msg("Polled")
}

// PollAll refreshes every resource once, concurrently.
func (p *Poller) PollAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range []string{ResourceHealth, ResourceMetrics, ResourceSensors, ResourceCommunity} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Poll(ctx, r)
		}()
	}
	wg.Wait()
}

// applyHealth must be called with p.mu held.
func (p *Poller) applyHealth(h models.Health) {
	prev := p.snap.Connection.Status
	conn := &p.snap.Connection
	conn.Status = ConnectionFromHealth(h)
	conn.IsBackendConnected = conn.Status == models.Connected
	if h.Available {
		now := time.Now()
		conn.LastPing = &now
	}
	if prev != conn.Status {
		p.logger.Info().Str("from", prev).Str("to", conn.Status).Msg("Connection state changed")
	}
}

// Snapshot returns a copy of the latest values.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.snap
	out.Connection = p.connection()
	return out
}

// Connection returns the current connection state.
func (p *Poller) Connection() Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connection()
}

func (p *Poller) connection() Connection {
	c := p.snap.Connection
	c.Endpoints = make(map[string]EndpointState, len(p.snap.Connection.Endpoints))
	for k, v := range p.snap.Connection.Endpoints {
		c.Endpoints[k] = v
	}
	return c
}
