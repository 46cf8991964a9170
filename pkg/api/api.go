// Package api is the system façade over the device's CGI backend. Reads
// never fail: on any error they return the normalizer's default shape with
// origin flags describing why. Writes report failures in a WriteResult.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"omega/pkg/client"
	"omega/pkg/config"
	"omega/pkg/log"
	"omega/pkg/metrics"
	"omega/pkg/models"
	"omega/pkg/normalize"
)

const reasonMock = "mock data"

// Service issues system reads and writes against the backend.
type Service struct {
	client  *client.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.RWMutex
	endpoints map[string]config.Endpoint
	mock      bool
	cacheTime time.Duration
}

// New creates the system façade.
func New(c *client.Client, cfg *config.Config, m *metrics.Metrics) *Service {
	s := &Service{
		client:  c,
		metrics: m,
		logger:  log.Component("api"),
	}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure applies endpoint paths, mock mode and cache window from cfg.
func (s *Service) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = cfg.EndpointTable()
	s.mock = cfg.MockMode()
	s.cacheTime = cfg.Request.CacheTime
}

// Client returns the underlying client core.
func (s *Service) Client() *client.Client {
	return s.client
}

// MockMode reports whether reads are served from mock data.
func (s *Service) MockMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mock
}

// Endpoint returns the descriptor for name.
func (s *Service) Endpoint(name string) config.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoints[name]
}

func (s *Service) options(ep config.Endpoint) client.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return client.Options{
		Method:    ep.Method,
		UseCache:  ep.Cacheable,
		CacheTime: s.cacheTime,
	}
}

// Probe performs one unretried request against the named endpoint and
// reports the raw outcome.
func (s *Service) Probe(ctx context.Context, name string, timeout time.Duration) client.Result {
	ep := s.Endpoint(name)
	if !ep.Configured() {
		return client.Result{Err: ErrNotConfigured}
	}
	return s.client.FetchWithStatus(ctx, ep.Path, client.Options{NoRetry: true, Timeout: timeout})
}

func (s *Service) fallback(name string, status int, err error) {
	s.logger.Warn().
		Str("endpoint", name).
		Int("status", status).
		Err(err).
		Msg("Backend read failed, using default")
	s.metrics.Fallback(name, "default")
}

type resource[T any] interface {
	*T
	SetOrigin(models.Origin)
}

func withOrigin[T any, P resource[T]](v T, o models.Origin) T {
	P(&v).SetOrigin(o)
	return v
}

func simulated() models.Origin {
	return models.Origin{Simulated: true, Reason: reasonMock}
}

func notConfigured() models.Origin {
	return models.Origin{Reason: ErrNotConfigured.Error()}
}

func failure(status int, err error) models.Origin {
	info := Classify(status, errorBody(err), err)
	reason := info.Description
	switch {
	case client.IsTimeout(err):
		reason = "not reachable (timeout)"
	case status > 0:
		reason = "HTTP " + strconv.Itoa(status) + ": " + http.StatusText(status)
	}
	return models.Origin{Reason: reason, ErrorKind: string(info.Kind)}
}

func errorBody(err error) normalize.Raw {
	var se *client.StatusError
	if errors.As(err, &se) {
		return normalize.Decode(se.Body)
	}
	return nil
}

// read is the plain read pattern: fetch, normalize, default on error.
func read[T any, P resource[T]](ctx context.Context, s *Service, name string, norm func(normalize.Raw) T, mock func() normalize.Raw) T {
	if s.MockMode() {
		return withOrigin[T, P](norm(mock()), simulated())
	}
	ep := s.Endpoint(name)
	if !ep.Configured() {
		return withOrigin[T, P](norm(nil), notConfigured())
	}

	data, err := s.client.Fetch(ctx, ep.Path, s.options(ep))
	if err != nil {
		status := client.StatusCode(err)
		s.fallback(name, status, err)
		return withOrigin[T, P](norm(nil), failure(status, err))
	}
	return norm(normalize.Decode(data))
}

// readStatus is the status-sensitive read pattern. A 200 carrying an
// error body marks the result degraded, 403 marks it forbidden and 503
// marks it degraded.
func readStatus[T any, P resource[T]](ctx context.Context, s *Service, name string, norm func(normalize.Raw) T, mock func() normalize.Raw) T {
	if s.MockMode() {
		return withOrigin[T, P](norm(mock()), simulated())
	}
	ep := s.Endpoint(name)
	if !ep.Configured() {
		return withOrigin[T, P](norm(nil), notConfigured())
	}

	res := s.client.FetchWithStatus(ctx, ep.Path, s.options(ep))
	if res.OK {
		raw := normalize.Decode(res.Data)
		msg, isErr := raw.ErrorMarker()
		if !isErr {
			return norm(raw)
		}
		info := Classify(res.Status, raw, nil)
		if msg == "" {
			msg = info.Description
		}
		return withOrigin[T, P](norm(raw), models.Origin{
			Degraded:  info.Kind != KindDMForbidden,
			Forbidden: info.Kind == KindDMForbidden,
			Reason:    msg,
			ErrorKind: string(info.Kind),
		})
	}

	s.fallback(name, res.Status, res.Err)
	o := failure(res.Status, res.Err)
	switch res.Status {
	case http.StatusForbidden:
		o.Forbidden = true
		o.Reason = "Access denied (403)"
	case http.StatusServiceUnavailable:
		o.Degraded = true
		o.Reason = "Service degraded (503)"
	}
	return withOrigin[T, P](norm(nil), o)
}

// GetHealth returns the device health check.
func (s *Service) GetHealth(ctx context.Context) models.Health {
	return read[models.Health](ctx, s, config.EndpointHealth, normalize.Health, mockHealth)
}

// GetMetrics returns CPU, RAM, disk and temperature readings.
func (s *Service) GetMetrics(ctx context.Context) models.Metrics {
	return read[models.Metrics](ctx, s, config.EndpointMetrics, normalize.Metrics, mockMetrics)
}

// GetSensors returns the environmental sensor reading.
func (s *Service) GetSensors(ctx context.Context) models.Sensors {
	out := readStatus[models.Sensors](ctx, s, config.EndpointSensors, normalize.Sensors, mockSensors)
	if !out.Available && !out.Simulated {
		out.Offline = true
	}
	return out
}

// GetGPS returns the position fix.
func (s *Service) GetGPS(ctx context.Context) models.GPS {
	return read[models.GPS](ctx, s, config.EndpointGPS, normalize.GPS, mockGPS)
}

// GetBackups returns the backup listing.
func (s *Service) GetBackups(ctx context.Context) models.Backups {
	return read[models.Backups](ctx, s, config.EndpointBackup, normalize.Backups, mockBackups)
}

// GetKeys returns the key store listing.
func (s *Service) GetKeys(ctx context.Context) models.Keys {
	return read[models.Keys](ctx, s, config.EndpointKeys, normalize.Keys, mockKeys)
}

// GetKeySync returns the key sync status.
func (s *Service) GetKeySync(ctx context.Context) models.Keys {
	return read[models.Keys](ctx, s, config.EndpointKeySync, normalize.Keys, mockKeys)
}

// GetDMs returns the local direct-message inbox.
func (s *Service) GetDMs(ctx context.Context) models.DirectMessages {
	return readStatus[models.DirectMessages](ctx, s, config.EndpointDM, normalize.DMs, mockDMs)
}

// GetCommunityPosts returns the community bulletin board.
func (s *Service) GetCommunityPosts(ctx context.Context) models.CommunityPosts {
	return read[models.CommunityPosts](ctx, s, config.EndpointCommunityPosts, normalize.CommunityPosts, mockCommunityPosts)
}

// GetHotspotStatus returns the Wi-Fi hotspot status.
func (s *Service) GetHotspotStatus(ctx context.Context) models.Hotspot {
	return read[models.Hotspot](ctx, s, config.EndpointHotspotStatus, normalize.Hotspot, mockHotspot)
}

// TriggerBackup starts a backup run.
func (s *Service) TriggerBackup(ctx context.Context) models.WriteResult {
	return s.write(ctx, config.EndpointBackupTrigger, map[string]string{"action": "backup"}, "Backup service unavailable")
}

// SendDM posts a direct message through the local DM endpoint.
func (s *Service) SendDM(ctx context.Context, to, content string) models.WriteResult {
	return s.write(ctx, config.EndpointDMSend, map[string]string{"to": to, "content": content}, "Direct messaging unavailable")
}

// ToggleHotspot flips the Wi-Fi hotspot.
func (s *Service) ToggleHotspot(ctx context.Context) models.WriteResult {
	return s.write(ctx, config.EndpointHotspotToggle, nil, "Hotspot service unavailable")
}

// write posts body once; non-idempotent operations are never retried.
func (s *Service) write(ctx context.Context, name string, body any, unavailable string) models.WriteResult {
	if s.MockMode() {
		return models.WriteResult{Error: ErrMockMode.Error(), Message: unavailable}
	}
	ep := s.Endpoint(name)
	if !ep.Configured() {
		return models.WriteResult{Error: ErrNotConfigured.Error(), Message: unavailable}
	}

	data, err := s.client.Fetch(ctx, ep.Path, client.Options{Method: ep.Method, Body: body, NoRetry: true})
	if err != nil {
		s.logger.Warn().Str("endpoint", name).Int("status", client.StatusCode(err)).Err(err).Msg("Backend write failed")
		return models.WriteResult{Error: err.Error(), Message: unavailable}
	}

	raw := normalize.Decode(data)
	if msg, isErr := raw.ErrorMarker(); isErr {
		if msg == "" {
			msg = "backend reported an error"
		}
		return models.WriteResult{Error: msg, Data: raw}
	}
	result := models.WriteResult{Success: true, Data: raw}
	if m, ok := raw["message"].(string); ok {
		result.Message = m
	}
	return result
}
