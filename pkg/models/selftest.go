package models

// TestStatus is the verdict of one self-test probe.
type TestStatus string

const (
	TestOK            TestStatus = "OK"
	TestForbidden     TestStatus = "FORBIDDEN"
	TestDegraded      TestStatus = "DEGRADED"
	TestNotConfigured TestStatus = "NOT_CONFIGURED"
	TestUnknown       TestStatus = "UNKNOWN"
)

// Subsystem probe types.
const (
	ProbeLocal   = "local"
	ProbeStorage = "storage"
	ProbeAPI     = "api"
	ProbeSensor  = "sensor"
)

// TestResult is one subsystem probe.
type TestResult struct {
	Subsystem string         `json:"subsystem"`
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Status    TestStatus     `json:"status"`
	LatencyMs *int64         `json:"latency"`
	Details   map[string]any `json:"details"`
}

// SelfTestReport is the result of one self-test run.
type SelfTestReport struct {
	Timestamp int64        `json:"timestamp"`
	Tests     []TestResult `json:"tests"`
	Overall   TestStatus   `json:"overall"`
}

// Connection states derived from health polling.
const (
	Connected    = "connected"
	Degraded     = "degraded"
	NotConnected = "not_connected"
)
