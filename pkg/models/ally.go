package models

import "time"

// MessageStatus is the delivery state shown on a chat bubble.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusQueued    MessageStatus = "queued"
	StatusFailed    MessageStatus = "failed"
	StatusDelivered MessageStatus = "delivered"
)

// Message priorities.
const (
	PriorityNormal    = "normal"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

// SelfSender marks messages composed on this device.
const SelfSender = "me"

// ChatMessage is the UI view-model of one chat message.
type ChatMessage struct {
	ID                string        `json:"id"`
	Sender            string        `json:"sender"`
	SenderName        string        `json:"sender_name,omitempty"`
	SenderStatus      string        `json:"sender_status,omitempty"`
	Text              string        `json:"text"`
	Timestamp         string        `json:"timestamp"`
	Priority          string        `json:"priority,omitempty"`
	Status            MessageStatus `json:"status"`
	BroadcastTitle    string        `json:"broadcast_title,omitempty"`
	BroadcastSeverity string        `json:"broadcast_severity,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// Node is one peer device discovered by the Ally API.
type Node struct {
	NodeID          string  `json:"node_id"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	IP              *string `json:"ip"`
	URL             *string `json:"url"`
	Status          string  `json:"status"`
	UserStatus      *string `json:"user_status"`
	UserStatusNote  *string `json:"user_status_note"`
	UserStatusSetAt *string `json:"user_status_set_at"`
	LastSeen        string  `json:"last_seen"`
	LinkType        *string `json:"link_type"`
	RSSI            *int    `json:"rssi"`
	AlertsCount     int     `json:"alerts_count"`
}

// NodeIdentity describes a peer's software.
type NodeIdentity struct {
	Hostname   string `json:"hostname"`
	Version    string `json:"version"`
	Uptime     int64  `json:"uptime"`
	LastReboot string `json:"last_reboot"`
}

// NodeSystem carries a peer's system load.
type NodeSystem struct {
	CPU      float64           `json:"cpu"`
	RAM      float64           `json:"ram"`
	Disk     float64           `json:"disk"`
	Temp     float64           `json:"temp"`
	Services map[string]string `json:"services"`
}

// NodePower carries a peer's battery state.
type NodePower struct {
	BatteryPct  float64 `json:"battery_pct"`
	Volts       float64 `json:"volts"`
	Amps        float64 `json:"amps"`
	Watts       float64 `json:"watts"`
	ChargeState string  `json:"charge_state"`
	RuntimeS    int64   `json:"runtime_s"`
}

// NodeGPS carries a peer's position.
type NodeGPS struct {
	Fix   string  `json:"fix"`
	Sats  int     `json:"sats"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Acc   float64 `json:"acc"`
	Speed float64 `json:"speed"`
}

// NodeSensors carries a peer's environmental readings.
type NodeSensors struct {
	Temp     float64 `json:"temp"`
	Hum      float64 `json:"hum"`
	Pressure float64 `json:"pressure"`
	IAQ      float64 `json:"iaq"`
}

// NodeAlert is one alert raised by a peer.
type NodeAlert struct {
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Timestamp string `json:"timestamp"`
}

// NodeStatus is the detailed status of one peer.
type NodeStatus struct {
	NodeID    string       `json:"node_id"`
	Identity  NodeIdentity `json:"identity"`
	System    NodeSystem   `json:"system"`
	Power     NodePower    `json:"power"`
	GPS       NodeGPS      `json:"gps"`
	Sensors   NodeSensors  `json:"sensors"`
	Alerts    []NodeAlert  `json:"alerts"`
	Simulated bool         `json:"simulated,omitempty"`
}

// SendResult is returned by every Ally send operation.
type SendResult struct {
	Success bool   `json:"success"`
	Queued  bool   `json:"queued"`
	ID      string `json:"id,omitempty"`
	TempID  string `json:"tempId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// User status values.
const (
	UserGood     = "good"
	UserOkay     = "okay"
	UserNeedHelp = "need_help"
)

// UserStatus is the self-reported wellbeing status of this device's user.
type UserStatus struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
	SetAt  *string `json:"set_at"`
}

// PingResult is the outcome of pinging a peer.
type PingResult struct {
	Success bool    `json:"success"`
	RTTMs   float64 `json:"rtt_ms"`
	Status  string  `json:"status"`
	Error   string  `json:"error,omitempty"`
}

// RefreshResult is the outcome of asking a peer to refresh.
type RefreshResult struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConnectionStatus summarizes the Ally link.
type ConnectionStatus struct {
	IsOnline       bool       `json:"isOnline"`
	LastError      string     `json:"lastError,omitempty"`
	LastUpdated    *time.Time `json:"lastUpdated"`
	QueuedMessages int        `json:"queuedMessages"`
}

// MessageTemplate is a one-tap quick reply.
type MessageTemplate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}
