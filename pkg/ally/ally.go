// Package ally is the node-communication façade: peer nodes, global chat,
// direct messages and broadcasts. Reads degrade from live data to the last
// good copy and then to mock data. Sends that fail are parked in the
// offline queue and replayed by RetryQueuedMessages.
package ally

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"omega/pkg/client"
	"omega/pkg/config"
	"omega/pkg/log"
	"omega/pkg/metrics"
	"omega/pkg/models"
	"omega/pkg/queue"
	"omega/pkg/viewmodel"
)

const (
	pathNodes      = "/api/ally/nodes"
	pathGlobalChat = "/api/ally/chat/global"
	pathBroadcast  = "/api/ally/broadcast"
	pathStatusMe   = "/api/ally/status/me"

	headerAPIKey = "X-API-Key"
	queryAPIKey  = "key"

	defaultSeverity = "warning"
	localSenderName = "This Device"
)

// Source says which degradation tier produced a read.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
	SourceMock  Source = "mock"
)

// NodeList is the result of GetNodes.
type NodeList struct {
	Nodes  []models.Node `json:"nodes"`
	Source Source        `json:"source"`
}

// ChatLog is the result of a chat read.
type ChatLog struct {
	Messages []models.ChatMessage `json:"messages"`
	Source   Source               `json:"source"`
}

// StatusStore persists the self-reported user status. *state.Store
// implements it.
type StatusStore interface {
	UserStatus(ctx context.Context) (models.UserStatus, error)
	SaveUserStatus(ctx context.Context, st models.UserStatus) error
}

type conversation struct {
	thread *viewmodel.Thread
	since  time.Time
}

// Service talks to the Ally API.
type Service struct {
	reads   *client.Client
	writes  *client.Client
	store   StatusStore
	queue   *queue.Queue
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu          sync.RWMutex
	mock        bool
	apiKey      string
	readTimeout time.Duration
	nodes       []models.Node
	nodesAt     *time.Time
	global      conversation
	dms         map[string]*conversation
	userStatus  *models.UserStatus
	online      bool
	lastError   string
}

// New creates the Ally façade from cfg. Reads go through a retrying
// transport; writes are single attempts.
func New(cfg *config.Config, store StatusStore, q *queue.Queue, m *metrics.Metrics) *Service {
	policy := client.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Factor:      cfg.Retry.BackoffFactor,
	}
	timeout := cfg.Request.Timeout
	s := &Service{
		reads: client.New(cfg.AllyBase(),
			client.WithHTTPClient(newReadTransport(policy, timeout)),
			client.WithMetrics(m),
			client.WithName("ally"),
		),
		writes: client.New(cfg.AllyBase(),
			client.WithMetrics(m),
			client.WithName("ally"),
			client.WithDefaultTimeout(timeout),
		),
		store:       store,
		queue:       q,
		metrics:     m,
		logger:      log.Component("ally"),
		readTimeout: chainTimeout(policy, timeout),
		global:      conversation{thread: viewmodel.NewThread()},
		dms:         make(map[string]*conversation),
		online:      true,
	}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure applies base URL, API key, timeout and mock mode from cfg.
// The retry policy of the read transport is fixed at construction.
func (s *Service) Reconfigure(cfg *config.Config) {
	s.reads.Reconfigure(cfg.AllyBase(), 0)
	s.writes.Reconfigure(cfg.AllyBase(), cfg.Request.Timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mock = cfg.MockMode()
	s.apiKey = cfg.Ally.APIKey
}

// MockMode reports whether the façade serves mock data.
func (s *Service) MockMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mock
}

// Queue returns the offline queue sends are parked in.
func (s *Service) Queue() *queue.Queue {
	return s.queue
}

func (s *Service) options(method string, body any) client.Options {
	s.mu.RLock()
	key := s.apiKey
	s.mu.RUnlock()

	opts := client.Options{Method: method, Body: body, NoRetry: true}
	if key != "" {
		opts.Header = http.Header{headerAPIKey: {key}}
		opts.Query = url.Values{queryAPIKey: {key}}
	}
	return opts
}

// get performs a retried read.
func (s *Service) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	opts := s.options("", nil)
	if len(query) > 0 {
		if opts.Query == nil {
			opts.Query = url.Values{}
		}
		for k, v := range query {
			opts.Query[k] = v
		}
	}
	s.mu.RLock()
	opts.Timeout = s.readTimeout
	s.mu.RUnlock()

	data, err := s.reads.Fetch(ctx, path, opts)
	s.track(err)
	return data, err
}

// send performs one write attempt and decodes the reply into out.
func (s *Service) send(ctx context.Context, method, path string, body, out any) error {
	data, err := s.writes.Fetch(ctx, path, s.options(method, body))
	s.track(err)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", client.ErrDecode, err)
	}
	return nil
}

// track records the outcome of the last request for ConnectionStatus.
func (s *Service) track(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.online = true
		s.lastError = ""
		return
	}
	s.online = false
	if client.IsTimeout(err) {
		s.lastError = "Request timeout"
	} else {
		s.lastError = err.Error()
	}
}

func (s *Service) fallback(resource string, source Source, err error) {
	s.logger.Warn().
		Str("resource", resource).
		Str("source", string(source)).
		Int("status", client.StatusCode(err)).
		Err(err).
		Msg("Ally read failed, serving fallback")
	s.metrics.Fallback("ally_"+resource, string(source))
}

// decodeList accepts either {"<key>": [...]} or a bare array.
func decodeList[T any](data json.RawMessage, key string) ([]T, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if inner, ok := wrapped[key]; ok {
			data = inner
		}
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", client.ErrDecode, err)
	}
	return out, nil
}

// GetNodes lists peer nodes.
func (s *Service) GetNodes(ctx context.Context) NodeList {
	if s.MockMode() {
		return NodeList{Nodes: mockNodes(time.Now()), Source: SourceMock}
	}

	data, err := s.get(ctx, pathNodes, nil)
	var nodes []models.Node
	if err == nil {
		nodes, err = decodeList[models.Node](data, "nodes")
	}
	if err == nil {
		now := time.Now()
		s.mu.Lock()
		s.nodes = nodes
		s.nodesAt = &now
		s.mu.Unlock()
		return NodeList{Nodes: nodes, Source: SourceLive}
	}

	s.mu.RLock()
	cached := s.nodes
	s.mu.RUnlock()
	if len(cached) > 0 {
		s.fallback("nodes", SourceCache, err)
		return NodeList{Nodes: cached, Source: SourceCache}
	}
	s.fallback("nodes", SourceMock, err)
	return NodeList{Nodes: mockNodes(time.Now()), Source: SourceMock}
}

// GetNodeStatus returns the detailed status of one node. Failures yield
// simulated data.
func (s *Service) GetNodeStatus(ctx context.Context, nodeID string) models.NodeStatus {
	if s.MockMode() {
		return mockNodeStatus(nodeID, time.Now())
	}
	data, err := s.get(ctx, nodePath(nodeID, "status"), nil)
	if err == nil {
		var st models.NodeStatus
		if err = json.Unmarshal(data, &st); err == nil {
			if st.NodeID == "" {
				st.NodeID = nodeID
			}
			return st
		}
	}
	s.fallback("node_status", SourceMock, err)
	return mockNodeStatus(nodeID, time.Now())
}

func nodePath(nodeID, action string) string {
	return "/api/ally/node/" + url.PathEscape(nodeID) + "/" + action
}

func dmPath(nodeID string) string {
	return "/api/ally/chat/dm/" + url.PathEscape(nodeID)
}

// ConnectionStatus reports the outcome of the last Ally request.
func (s *Service) ConnectionStatus() models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ConnectionStatus{
		IsOnline:       s.online,
		LastError:      s.lastError,
		LastUpdated:    s.nodesAt,
		QueuedMessages: s.queue.Len(),
	}
}
