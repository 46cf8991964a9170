// Package viewmodel keeps the optimistic chat state shown to the user. A
// send inserts a pending message under a client-generated temporary id
// and later resolves that exact message with the façade's outcome.
package viewmodel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"omega/pkg/models"
)

// Outcome is the resolution of a pending send.
type Outcome interface {
	outcome()
}

// Confirmed means the backend accepted the message. ServerID replaces the
// temporary id when set; Status defaults to sent.
type Confirmed struct {
	ServerID string
	Status   models.MessageStatus
}

// Queued means the message waits in the offline queue.
type Queued struct{}

// Failed means the send failed and was not queued.
type Failed struct {
	Err error
}

func (Confirmed) outcome() {}
func (Queued) outcome()    {}
func (Failed) outcome()    {}

// Thread is one conversation: the global chat or a DM with a node.
type Thread struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	index    map[string]int
}

// NewThread creates an empty thread.
func NewThread() *Thread {
	return &Thread{index: make(map[string]int)}
}

// NewTempID returns a correlation id for an optimistic message.
func NewTempID() string {
	return "temp-" + uuid.NewString()
}

// AddPending inserts msg with status sending. An empty id is replaced with
// a fresh temporary id, which is returned.
func (t *Thread) AddPending(msg models.ChatMessage) string {
	if msg.ID == "" {
		msg.ID = NewTempID()
	}
	if msg.Sender == "" {
		msg.Sender = models.SelfSender
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	msg.Status = models.StatusSending

	t.mu.Lock()
	defer t.mu.Unlock()
	t.index[msg.ID] = len(t.messages)
	t.messages = append(t.messages, msg)
	return msg.ID
}

// Resolve applies outcome to the pending message tempID. It reports
// whether the message was found.
func (t *Thread) Resolve(tempID string, outcome Outcome) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[tempID]
	if !ok {
		return false
	}
	msg := &t.messages[i]

	switch o := outcome.(type) {
	case Confirmed:
		msg.Status = o.Status
		if msg.Status == "" {
			msg.Status = models.StatusSent
		}
		msg.Error = ""
		if o.ServerID != "" && o.ServerID != tempID {
			if _, exists := t.index[o.ServerID]; !exists {
				delete(t.index, tempID)
				msg.ID = o.ServerID
				t.index[o.ServerID] = i
			}
		}
	case Queued:
		msg.Status = models.StatusQueued
	case Failed:
		msg.Status = models.StatusFailed
		if o.Err != nil {
			msg.Error = o.Err.Error()
		}
	}
	return true
}

// Merge adds messages not already present, matched by id, and updates
// the status of known ones. It returns the number of new messages.
func (t *Thread) Merge(incoming []models.ChatMessage) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, m := range incoming {
		if i, ok := t.index[m.ID]; ok {
			if m.Status != "" {
				t.messages[i].Status = m.Status
			}
			continue
		}
		t.index[m.ID] = len(t.messages)
		t.messages = append(t.messages, m)
		added++
	}
	return added
}

// Get returns the message with id.
func (t *Thread) Get(id string) (models.ChatMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return models.ChatMessage{}, false
	}
	return t.messages[i], true
}

// Messages returns a copy of the thread in insertion order.
func (t *Thread) Messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
