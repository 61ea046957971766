package transport

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/google/uuid"
	"time"
)

// --------------------------------------------------------------------------
// In-Flight Request
// --------------------------------------------------------------------------

// InFlightRequest is a request that was sent and awaits its response.
// It is owned by the goroutine that called Send until Receive returns.
type InFlightRequest struct {
	// ID correlates the Tx and Rx log lines of one request
	ID uuid.UUID
	// Request is the encoded request that was sent
	Request *common.EncodedRequest
	// SentAt is the time the request was (last) written
	SentAt time.Time
	// Attempts counts the writes of this request, including resends after a fault
	Attempts int
	// Handle is owned by the transport (bound connection or buffered response)
	Handle any
}

// NewInFlightRequest creates an in-flight request with a fresh id
func NewInFlightRequest(req *common.EncodedRequest) *InFlightRequest {
	return &InFlightRequest{
		ID:      uuid.New(),
		Request: req,
	}
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for the client transport layer
type IClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send writes the request and binds it to a connection. It blocks while the pool
	// is exhausted.
	Send(req *common.EncodedRequest) (*InFlightRequest, error)
	// Receive reads the response of an in-flight request and enforces the status policy.
	// The request's own policy wins unless it is common.RaiseDefault, in which case raise
	// applies. On a status rejection both the response and the *common.HTTPStatusError
	// are returned.
	Receive(inflight *InFlightRequest, raise common.RaiseForStatus) (*common.Response, error)
	// MaxConnections returns the number of requests that may be in flight at once
	MaxConnections() int
	// Restart closes every connection and recreates the pool in place
	Restart() error
	// Close closes the transport connection
	Close() error
}
