package client

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
	"github.com/stretchr/testify/require"
	"net/http"
	"sync"
	"testing"
)

// verifierHandler answers the index-th received request
type verifierHandler func(index int, req *common.EncodedRequest) (*common.Response, error)

// verifierTransport is an in-memory transport that records every request and
// answers it through a handler
type verifierTransport struct {
	mu             sync.Mutex
	handler        verifierHandler
	maxConnections int

	requests    []*common.EncodedRequest
	received    int
	inFlight    int
	maxInFlight int
	restarts    int
	closed      bool
}

func newVerifierTransport(maxConnections int, handler verifierHandler) *verifierTransport {
	return &verifierTransport{handler: handler, maxConnections: maxConnections}
}

// sequence answers the n-th request with the n-th handler
func sequence(handlers ...func(req *common.EncodedRequest) (*common.Response, error)) verifierHandler {
	return func(index int, req *common.EncodedRequest) (*common.Response, error) {
		if index >= len(handlers) {
			return nil, fmt.Errorf("have only %d verifiers, got request %d", len(handlers), index+1)
		}
		return handlers[index](req)
	}
}

func respond(status int, body string) func(req *common.EncodedRequest) (*common.Response, error) {
	return func(req *common.EncodedRequest) (*common.Response, error) {
		return common.NewResponse(req, status, http.Header{}, []byte(body)), nil
	}
}

func (t *verifierTransport) Connect(common.ClientConfig) error { return nil }

func (t *verifierTransport) Send(req *common.EncodedRequest) (*transport.InFlightRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, common.ErrPoolClosed
	}
	t.requests = append(t.requests, req)
	t.inFlight++
	t.maxInFlight = max(t.maxInFlight, t.inFlight)

	inflight := transport.NewInFlightRequest(req)
	inflight.Attempts = 1
	return inflight, nil
}

func (t *verifierTransport) Receive(inflight *transport.InFlightRequest, raise common.RaiseForStatus) (*common.Response, error) {
	t.mu.Lock()
	index := t.received
	t.received++
	t.inFlight--
	t.mu.Unlock()

	resp, err := t.handler(index, inflight.Request)
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(inflight.Request.RaiseForStatus.Or(raise)); err != nil {
		return resp, err
	}
	return resp, nil
}

func (t *verifierTransport) MaxConnections() int { return t.maxConnections }

func (t *verifierTransport) Restart() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restarts++
	t.inFlight = 0
	return nil
}

func (t *verifierTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *verifierTransport) sent() []*common.EncodedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*common.EncodedRequest(nil), t.requests...)
}

func newVerifierClient(t *testing.T, maxConnections int, handler verifierHandler) (*Client, *verifierTransport) {
	t.Helper()
	tr := newVerifierTransport(maxConnections, handler)
	c, err := NewClient(common.ClientConfig{Endpoint: "http://verifier:8081", AccessKey: "access-key"}, tr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, tr
}
