package client

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	// ErrDecode is returned when a 2xx response body is not valid JSON.
	ErrDecode = errors.New("response body is not valid JSON")

	// ErrInvalidURL is returned when a path cannot be resolved against the base URL.
	ErrInvalidURL = errors.New("invalid request URL")
)

// StatusError represents a non-2xx response or a timed out request.
// Timeouts carry StatusCode 408 and Timeout set.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
	Timeout    bool
}

func (e *StatusError) Error() string {
	if e.Timeout {
		return "request timed out"
	}
	return "backend returned status " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

// TransportError is a failure before any response was received.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return "request to " + e.URL + " failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status carried by err. Transport failures
// and unknown errors report 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Timeout
}

// IsTransport reports whether err happened before a response arrived.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func timeoutError() *StatusError {
	return &StatusError{
		StatusCode: http.StatusRequestTimeout,
		Status:     http.StatusText(http.StatusRequestTimeout),
		Timeout:    true,
	}
}
