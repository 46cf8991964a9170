package ally

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"omega/pkg/models"
)

type statusBody struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

type pingReply struct {
	RTTMs  float64 `json:"rtt_ms"`
	Status string  `json:"status"`
}

type refreshReply struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func validUserStatus(status string) bool {
	switch status {
	case models.UserGood, models.UserOkay, models.UserNeedHelp:
		return true
	}
	return false
}

// GetCurrentUserStatus returns this device's self-reported status: live,
// then the last value seen, then the persisted value.
func (s *Service) GetCurrentUserStatus(ctx context.Context) models.UserStatus {
	if !s.MockMode() {
		data, err := s.get(ctx, pathStatusMe, nil)
		var st models.UserStatus
		if err == nil {
			err = json.Unmarshal(data, &st)
		}
		if err == nil && validUserStatus(st.Status) {
			s.remember(ctx, st)
			return st
		}
		s.logger.Debug().Err(err).Msg("Live user status unavailable")
	}

	s.mu.RLock()
	cached := s.userStatus
	s.mu.RUnlock()
	if cached != nil {
		return *cached
	}

	st, err := s.store.UserStatus(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load user status")
		return models.UserStatus{Status: models.UserGood}
	}
	return st
}

// SetCurrentUserStatus records status locally and publishes it. A note is
// kept only for need_help. Publishing failures are logged; the local value
// stands.
func (s *Service) SetCurrentUserStatus(ctx context.Context, status, note string) (models.UserStatus, error) {
	if !validUserStatus(status) {
		return models.UserStatus{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	setAt := time.Now().UTC().Format(time.RFC3339)
	st := models.UserStatus{Status: status, SetAt: &setAt}
	if status == models.UserNeedHelp && note != "" {
		st.Note = &note
	}
	s.remember(ctx, st)

	if !s.MockMode() {
		if err := s.send(ctx, http.MethodPut, pathStatusMe, statusBody{Status: st.Status, Note: st.Note}, nil); err != nil {
			s.logger.Warn().Err(err).Str("status", status).Msg("Failed to publish user status")
		}
	}
	return st, nil
}

func (s *Service) remember(ctx context.Context, st models.UserStatus) {
	s.mu.Lock()
	s.userStatus = &st
	s.mu.Unlock()
	if err := s.store.SaveUserStatus(ctx, st); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist user status")
	}
}

// PingNode measures the round trip to nodeID.
func (s *Service) PingNode(ctx context.Context, nodeID string) models.PingResult {
	if s.MockMode() {
		return models.PingResult{Success: true, RTTMs: float64(10 + rand.IntN(50)), Status: "success"}
	}
	var reply pingReply
	if err := s.send(ctx, http.MethodPost, nodePath(nodeID, "ping"), nil, &reply); err != nil {
		return models.PingResult{Status: "error", Error: err.Error()}
	}
	return models.PingResult{Success: true, RTTMs: reply.RTTMs, Status: reply.Status}
}

// RefreshNode asks nodeID to publish fresh status.
func (s *Service) RefreshNode(ctx context.Context, nodeID string) models.RefreshResult {
	if s.MockMode() {
		return models.RefreshResult{Success: true, Status: "requested", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	}
	var reply refreshReply
	if err := s.send(ctx, http.MethodPost, nodePath(nodeID, "refresh"), nil, &reply); err != nil {
		return models.RefreshResult{Status: "error", Error: err.Error()}
	}
	return models.RefreshResult{Success: true, Status: reply.Status, Timestamp: reply.Timestamp}
}

var templates = []models.MessageTemplate{
	{ID: "omw", Text: "On my way!", Icon: "🚶"},
	{ID: "ok", Text: "All good here", Icon: "✓"},
	{ID: "help", Text: "Need assistance", Icon: "🆘"},
	{ID: "wait", Text: "Wait for me", Icon: "⏳"},
	{ID: "loc", Text: "Share your location", Icon: "📍"},
	{ID: "call", Text: "Call when you can", Icon: "📞"},
}

// MessageTemplates returns the quick replies offered in chat.
func (s *Service) MessageTemplates() []models.MessageTemplate {
	out := make([]models.MessageTemplate, len(templates))
	copy(out, templates)
	return out
}
