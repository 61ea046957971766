package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPoolClosed is returned by every pool operation after the pool was closed
	ErrPoolClosed = errors.New("connection pool is closed")
	// ErrPoolRestarted is returned when a connection handle outlived a pool restart
	ErrPoolRestarted = errors.New("connection belongs to a previous pool generation")
)

// --------------------------------------------------------------------------
// Connection Error
// --------------------------------------------------------------------------

// ConnectionError is a transport level failure (dial, write, read or premature close).
// The transport retries these internally; once surfaced to the caller they are final.
type ConnectionError struct {
	// Op is the phase that failed ("dial", "send", "receive")
	Op string
	// Endpoint is the remote address
	Endpoint string
	// Attempts is the number of attempts made before giving up
	Attempts int
	// Err is the underlying network error
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("connection: %s %s failed after %d attempts: %v", e.Op, e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("connection: %s %s failed: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Protocol Error
// --------------------------------------------------------------------------

// ProtocolError is returned when a response body could not be parsed
type ProtocolError struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	// Reason describes what was wrong with the body
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s (HTTP %d, %d byte body): %v", e.Reason, e.StatusCode, len(e.Body), e.Err)
	}
	return fmt.Sprintf("protocol: %s (HTTP %d, %d byte body)", e.Reason, e.StatusCode, len(e.Body))
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// HTTP Status Error
// --------------------------------------------------------------------------

// HTTPStatusError is returned when a response status is rejected by the
// RaiseForStatus policy of the request
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
	// Method and Path identify the rejected request
	Method string
	Path   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, truncateBody(e.Body, 256))
}

// --------------------------------------------------------------------------
// Classification
// --------------------------------------------------------------------------

// IsConnection checks if err is (or wraps) a *ConnectionError
func IsConnection(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

// IsProtocol checks if err is (or wraps) a *ProtocolError
func IsProtocol(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// IsHTTPStatus checks if err is (or wraps) a *HTTPStatusError
func IsHTTPStatus(err error) bool {
	var e *HTTPStatusError
	return errors.As(err, &e)
}

// StatusCodeOf returns the status code carried by err, or 0 if there is none
func StatusCodeOf(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether the transport may retry the request on a fresh connection.
// Pool shutdown is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrPoolClosed) {
		return false
	}
	return IsConnection(err)
}

func truncateBody(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
