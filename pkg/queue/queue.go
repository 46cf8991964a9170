// Package queue holds outbound chat messages whose send failed until a
// retry sweep delivers them. Contents live in memory only.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"omega/pkg/log"
	"omega/pkg/metrics"
	"omega/pkg/models"
)

// DeliverFunc replays one queued message. It must not enqueue on failure;
// the sweep re-queues failed messages itself.
type DeliverFunc func(ctx context.Context, msg models.OutboundMessage) error

// SweepResult summarizes one retry sweep.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Requeued  int `json:"requeued"`
}

// Queue is the process-wide offline message queue.
type Queue struct {
	mu      sync.Mutex
	items   []models.OutboundMessage
	metrics *metrics.Metrics
}

// New creates an empty queue.
func New(m *metrics.Metrics) *Queue {
	return &Queue{metrics: m}
}

// Enqueue appends msg, assigning an id and timestamp when missing, and
// returns the stored copy.
func (q *Queue) Enqueue(msg models.OutboundMessage) models.OutboundMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	q.items = append(q.items, msg)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	log.Debug().Str("id", msg.ID).Str("type", string(msg.Kind)).Int("depth", depth).Msg("Message queued")
	return msg
}

// Len returns the number of waiting messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the waiting messages.
func (q *Queue) Snapshot() []models.OutboundMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.OutboundMessage, len(q.items))
	copy(out, q.items)
	return out
}

// Remove drops the message with id and returns it. It reports whether
// one was found; a message drained by a running sweep is not.
func (q *Queue) Remove(id string) (models.OutboundMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.items {
		if m.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.metrics.SetQueueDepth(len(q.items))
			return m, true
		}
	}
	return models.OutboundMessage{}, false
}

// Sweep swaps the queue for an empty one and replays every drained
// message. Failures are appended to the current queue with Attempts
// incremented, behind anything queued while the sweep ran. Once ctx is
// done the remaining messages are put back untried.
func (q *Queue) Sweep(ctx context.Context, deliver DeliverFunc) SweepResult {
	q.mu.Lock()
	drained := q.items
	q.items = nil
	q.mu.Unlock()

	var res SweepResult
	var failed []models.OutboundMessage
	for i, msg := range drained {
		if ctx.Err() != nil {
			failed = append(failed, drained[i:]...)
			break
		}
		res.Attempted++
		if err := deliver(ctx, msg); err != nil {
			log.Debug().Str("id", msg.ID).Err(err).Msg("Queued message still undeliverable")
			msg.Attempts++
			failed = append(failed, msg)
			res.Requeued++
			continue
		}
		res.Delivered++
	}

	q.mu.Lock()
	q.items = append(q.items, failed...)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.QueueSwept(res.Delivered, res.Requeued, depth)
	if res.Attempted > 0 {
		log.Info().
			Int("attempted", res.Attempted).
			Int("delivered", res.Delivered).
			Int("requeued", res.Requeued).
			Int("depth", depth).
			Msg("Queue sweep finished")
	}
	return res
}
