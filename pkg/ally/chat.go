package ally

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"omega/pkg/models"
	"omega/pkg/queue"
	"omega/pkg/viewmodel"
)

type chatBody struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

type broadcastBody struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type sendReply struct {
	ID     any                  `json:"id"`
	Status models.MessageStatus `json:"status"`
}

func (r sendReply) id() string {
	switch v := r.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r sendReply) status() models.MessageStatus {
	if r.Status == "" {
		return models.StatusSent
	}
	return r.Status
}

// dm returns the conversation with nodeID, creating it on first use.
func (s *Service) dm(nodeID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.dms[nodeID]
	if !ok {
		c = &conversation{thread: viewmodel.NewThread()}
		s.dms[nodeID] = c
	}
	return c
}

// readChat fetches path into c. Messages newer than the last successful
// read are requested with since and merged by id.
func (s *Service) readChat(ctx context.Context, resource, path string, c *conversation, mock func() []models.ChatMessage) ChatLog {
	if s.MockMode() {
		c.thread.Merge(mock())
		return ChatLog{Messages: c.thread.Messages(), Source: SourceMock}
	}

	s.mu.RLock()
	since := c.since
	s.mu.RUnlock()

	var query url.Values
	if !since.IsZero() {
		query = url.Values{"since": {since.UTC().Format(time.RFC3339)}}
	}

	data, err := s.get(ctx, path, query)
	var msgs []models.ChatMessage
	if err == nil {
		msgs, err = decodeList[models.ChatMessage](data, "messages")
	}
	if err == nil {
		c.thread.Merge(msgs)
		s.mu.Lock()
		c.since = time.Now()
		s.mu.Unlock()
		return ChatLog{Messages: c.thread.Messages(), Source: SourceLive}
	}

	if c.thread.Len() > 0 {
		s.fallback(resource, SourceCache, err)
		return ChatLog{Messages: c.thread.Messages(), Source: SourceCache}
	}
	s.fallback(resource, SourceMock, err)
	return ChatLog{Messages: mock(), Source: SourceMock}
}

// GetGlobalChat returns the global chat, including local messages that
// are still pending.
func (s *Service) GetGlobalChat(ctx context.Context) ChatLog {
	return s.readChat(ctx, "global_chat", pathGlobalChat, &s.global, func() []models.ChatMessage {
		return mockGlobalChat(time.Now())
	})
}

// GetDM returns the direct conversation with nodeID.
func (s *Service) GetDM(ctx context.Context, nodeID string) ChatLog {
	return s.readChat(ctx, "dm", dmPath(nodeID), s.dm(nodeID), func() []models.ChatMessage {
		return mockDM(nodeID, time.Now())
	})
}

// SendGlobalMessage posts text to the global chat. An empty priority is
// normal.
func (s *Service) SendGlobalMessage(ctx context.Context, text, priority string) models.SendResult {
	if priority == "" {
		priority = models.PriorityNormal
	}
	return s.dispatch(ctx, s.global.thread, models.OutboundMessage{
		Kind:     models.OutboundGlobal,
		Text:     text,
		Priority: priority,
	})
}

// SendDM posts text to nodeID. Urgent messages carry the urgent priority.
func (s *Service) SendDM(ctx context.Context, nodeID, text string, urgent bool) models.SendResult {
	priority := models.PriorityNormal
	if urgent {
		priority = models.PriorityUrgent
	}
	return s.dispatch(ctx, s.dm(nodeID).thread, models.OutboundMessage{
		Kind:     models.OutboundDM,
		NodeID:   nodeID,
		Text:     text,
		Priority: priority,
	})
}

// BroadcastAlert sends an alert to every node. An empty severity is
// warning.
func (s *Service) BroadcastAlert(ctx context.Context, title, message, severity string) models.SendResult {
	if severity == "" {
		severity = defaultSeverity
	}
	msg := models.OutboundMessage{
		Kind:     models.OutboundBroadcast,
		Title:    title,
		Text:     message,
		Severity: severity,
		Priority: models.PriorityEmergency,
	}

	if s.MockMode() {
		return models.SendResult{Success: true, ID: "broadcast-" + strconv.FormatInt(time.Now().UnixMilli(), 10)}
	}

	reply, err := s.deliverOnce(ctx, msg)
	if err != nil {
		queued := s.queue.Enqueue(msg)
		s.logger.Warn().Err(err).Str("queue_id", queued.ID).Msg("Broadcast failed, queued")
		return models.SendResult{Queued: true, Error: err.Error()}
	}
	return models.SendResult{Success: true, ID: reply.id()}
}

// dispatch inserts an optimistic message into thread, sends it and
// resolves the optimistic entry with the outcome.
func (s *Service) dispatch(ctx context.Context, thread *viewmodel.Thread, msg models.OutboundMessage) models.SendResult {
	tempID := thread.AddPending(models.ChatMessage{
		SenderName: localSenderName,
		Text:       msg.Text,
		Priority:   msg.Priority,
	})
	msg.TempID = tempID

	if s.MockMode() {
		thread.Resolve(tempID, viewmodel.Confirmed{})
		return models.SendResult{Success: true, TempID: tempID}
	}

	reply, err := s.deliverOnce(ctx, msg)
	if err != nil {
		thread.Resolve(tempID, viewmodel.Queued{})
		queued := s.queue.Enqueue(msg)
		s.logger.Warn().
			Err(err).
			Str("kind", string(msg.Kind)).
			Str("queue_id", queued.ID).
			Msg("Send failed, queued")
		return models.SendResult{Queued: true, TempID: tempID, Error: err.Error()}
	}

	status := reply.status()
	id := reply.id()
	thread.Resolve(tempID, viewmodel.Confirmed{ServerID: id, Status: status})
	return models.SendResult{
		Success: true,
		Queued:  status == models.StatusQueued,
		ID:      id,
		TempID:  tempID,
	}
}

// deliverOnce performs the write for msg without touching the queue.
func (s *Service) deliverOnce(ctx context.Context, msg models.OutboundMessage) (sendReply, error) {
	var reply sendReply
	var err error
	switch msg.Kind {
	case models.OutboundGlobal:
		err = s.send(ctx, http.MethodPost, pathGlobalChat, chatBody{Text: msg.Text, Priority: msg.Priority}, &reply)
	case models.OutboundDM:
		err = s.send(ctx, http.MethodPost, dmPath(msg.NodeID), chatBody{Text: msg.Text, Priority: msg.Priority}, &reply)
	case models.OutboundBroadcast:
		err = s.send(ctx, http.MethodPost, pathBroadcast, broadcastBody{Title: msg.Title, Message: msg.Text, Severity: msg.Severity}, &reply)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
	return reply, err
}

// redeliver replays a queued message and resolves its optimistic entry.
func (s *Service) redeliver(ctx context.Context, msg models.OutboundMessage) error {
	reply, err := s.deliverOnce(ctx, msg)
	if err != nil {
		return err
	}
	if msg.TempID == "" {
		return nil
	}

	if thread := s.threadFor(msg); thread != nil {
		thread.Resolve(msg.TempID, viewmodel.Confirmed{ServerID: reply.id(), Status: reply.status()})
	}
	return nil
}

// threadFor returns the conversation msg was composed in, or nil for
// broadcasts.
func (s *Service) threadFor(msg models.OutboundMessage) *viewmodel.Thread {
	switch msg.Kind {
	case models.OutboundGlobal:
		return s.global.thread
	case models.OutboundDM:
		return s.dm(msg.NodeID).thread
	default:
		return nil
	}
}

// DiscardQueued drops a queued message so it is never retried. Its
// optimistic entry, if any, is marked failed.
func (s *Service) DiscardQueued(id string) bool {
	msg, ok := s.queue.Remove(id)
	if !ok {
		return false
	}
	if thread := s.threadFor(msg); thread != nil && msg.TempID != "" {
		thread.Resolve(msg.TempID, viewmodel.Failed{Err: ErrDiscarded})
	}
	s.logger.Info().Str("queue_id", id).Str("kind", string(msg.Kind)).Msg("Queued message discarded")
	return true
}

// RetryQueuedMessages replays every queued message once. Messages that
// fail again stay queued. Nothing happens in mock mode.
func (s *Service) RetryQueuedMessages(ctx context.Context) queue.SweepResult {
	if s.MockMode() || s.queue.Len() == 0 {
		return queue.SweepResult{}
	}
	return s.queue.Sweep(ctx, s.redeliver)
}
