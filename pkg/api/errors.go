package api

import (
	"errors"
	"net/http"
	"strings"

	"omega/pkg/client"
	"omega/pkg/normalize"
)

var (
	// ErrNotConfigured is returned for endpoints without a path.
	ErrNotConfigured = errors.New("endpoint not configured")

	// ErrMockMode is returned by writes while mock data mode is on.
	ErrMockMode = errors.New("mock data mode: backend writes disabled")
)

// ErrorKind identifies the class of a failed read for the UI.
type ErrorKind string

const (
	KindDMForbidden  ErrorKind = "DM_FORBIDDEN"
	KindSensorsError ErrorKind = "SENSORS_ERROR"
	KindGPSError     ErrorKind = "GPS_ERROR"
	KindAPIError     ErrorKind = "API_ERROR"
	KindNetworkError ErrorKind = "NETWORK_ERROR"
	KindTimeout      ErrorKind = "TIMEOUT"
)

// ErrorInfo describes a failure the way the dashboard displays it.
type ErrorInfo struct {
	Kind        ErrorKind `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RawError    string    `json:"rawError,omitempty"`
}

var errorInfos = map[ErrorKind]ErrorInfo{
	KindDMForbidden: {
		Kind:        KindDMForbidden,
		Title:       "Direct Messages - Setup Required",
		Description: "Direct messaging has not been configured on this OMEGA device.",
	},
	KindSensorsError: {
		Kind:        KindSensorsError,
		Title:       "Environmental Sensors - Hardware Issue",
		Description: "Unable to read from the BME680 sensor. The I2C connection may not be configured.",
	},
	KindGPSError: {
		Kind:        KindGPSError,
		Title:       "GPS - No Signal",
		Description: "Unable to get GPS coordinates. The GPS receiver may not be connected or lacks signal.",
	},
	KindAPIError: {
		Kind:        KindAPIError,
		Title:       "Service Error",
		Description: "The requested service returned an error.",
	},
	KindNetworkError: {
		Kind:        KindNetworkError,
		Title:       "Connection Failed",
		Description: "Cannot reach the OMEGA server. Check your network connection.",
	},
	KindTimeout: {
		Kind:        KindTimeout,
		Title:       "Not Reachable",
		Description: "The OMEGA server did not answer in time.",
	},
}

// Classify maps a response status, decoded body and transport error to an
// ErrorInfo. Only transport errors count as network failures; a body that
// fails to decode is an API error.
func Classify(status int, body normalize.Raw, err error) ErrorInfo {
	if status == http.StatusForbidden || body["err"] == "forbidden" || body["error"] == "forbidden" {
		return errorInfos[KindDMForbidden]
	}

	if s, _ := body["status"].(string); s == "error" {
		raw, _ := body["error"].(string)
		msg := strings.ToLower(raw)
		switch {
		case strings.Contains(msg, "i2c"), strings.Contains(msg, "sensor"), strings.Contains(msg, "bme"):
			info := errorInfos[KindSensorsError]
			info.RawError = raw
			return info
		case strings.Contains(msg, "gps"), strings.Contains(msg, "gpspipe"), strings.Contains(msg, "timeout"):
			info := errorInfos[KindGPSError]
			info.RawError = raw
			return info
		}
		info := errorInfos[KindAPIError]
		info.Description = raw
		if raw == "" {
			info.Description = "Unknown error"
		}
		info.RawError = raw
		return info
	}

	if client.IsTimeout(err) {
		return errorInfos[KindTimeout]
	}
	if client.IsTransport(err) {
		return errorInfos[KindNetworkError]
	}
	return errorInfos[KindAPIError]
}

// Describe returns the display info for kind.
func Describe(kind ErrorKind) ErrorInfo {
	if info, ok := errorInfos[kind]; ok {
		return info
	}
	return errorInfos[KindAPIError]
}
