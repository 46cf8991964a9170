package models

import "time"

// OutboundKind is the send operation an outbound message replays.
type OutboundKind string

const (
	OutboundGlobal    OutboundKind = "global"
	OutboundDM        OutboundKind = "dm"
	OutboundBroadcast OutboundKind = "broadcast"
)

// OutboundMessage is a send that failed and waits in the offline queue.
// It carries the original send parameters so a retry can replay it.
type OutboundMessage struct {
	ID         string       `json:"id"`
	Kind       OutboundKind `json:"type"`
	Text       string       `json:"text"`
	Priority   string       `json:"priority"`
	NodeID     string       `json:"nodeId,omitempty"`
	Title      string       `json:"title,omitempty"`
	Severity   string       `json:"severity,omitempty"`
	TempID     string       `json:"tempId,omitempty"`
	EnqueuedAt time.Time    `json:"timestamp"`
	Attempts   int          `json:"attempts"`
}
