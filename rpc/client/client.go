package client

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
	httptransport "github.com/ValentinKolb/dplane/rpc/transport/http"
	"github.com/ValentinKolb/dplane/rpc/transport/tcp"
	"github.com/ValentinKolb/dplane/rpc/transport/unix"
	"net/http"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Request Options
// --------------------------------------------------------------------------

type requestOptions struct {
	accessKey string
	raise     common.RaiseForStatus
}

// RequestOption changes how a single request is encoded
type RequestOption func(*requestOptions)

// WithAccessKey overrides the access key of the client for one request
func WithAccessKey(accessKey string) RequestOption {
	return func(o *requestOptions) {
		o.accessKey = accessKey
	}
}

// WithRaiseForStatus sets the status policy of one request
func WithRaiseForStatus(policy common.RaiseForStatus) RequestOption {
	return func(o *requestOptions) {
		o.raise = policy
	}
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client encodes operations and executes them over a transport. It is safe for
// concurrent use; batches and cursors created from it are not. Batches of one
// client run one at a time, since a batch holds every pooled connection while it
// fills the pipeline.
type Client struct {
	config    common.ClientConfig
	transport transport.IClientTransport

	// batchMu is held for the whole Wait of a batch
	batchMu sync.Mutex

	KV        *KV
	Object    *Object
	Stream    *Stream
	Container *Container
}

// NewClient connects transport with config and returns a client using it
func NewClient(config common.ClientConfig, transport transport.IClientTransport) (*Client, error) {
	config.ApplyDefaults()

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	c := &Client{
		config:    config,
		transport: transport,
	}
	c.KV = &KV{client: c}
	c.Object = &Object{client: c}
	c.Stream = &Stream{client: c}
	c.Container = &Container{client: c}

	Logger.Debugf("Created client for %s with %d connections", config.Endpoint, transport.MaxConnections())
	return c, nil
}

// NewDefaultClient resolves config against the V3IO_* environment and creates a
// client with the transport selected by the configuration
func NewDefaultClient(config common.ClientConfig) (*Client, error) {
	resolved, err := common.LoadClientConfig(config)
	if err != nil {
		return nil, err
	}
	return NewClient(resolved, NewTransport(resolved))
}

// NewTransport returns the transport selected by config: the session transport
// for "http", otherwise pooled connections over a unix socket or tcp
func NewTransport(config common.ClientConfig) transport.IClientTransport {
	switch {
	case config.Transport == common.TransportHTTP:
		return httptransport.NewHttpClientTransport()
	case strings.HasPrefix(config.Endpoint, "unix://"):
		return unix.NewUnixClientTransport()
	default:
		return tcp.NewTCPClientTransport()
	}
}

// Config returns the effective configuration of the client
func (c *Client) Config() common.ClientConfig {
	return c.config
}

// Transport returns the transport of the client
func (c *Client) Transport() transport.IClientTransport {
	return c.transport
}

// Encode translates input into a request without sending it
func (c *Client) Encode(container string, input Input, opts ...RequestOption) (*common.EncodedRequest, error) {
	if input == nil {
		return nil, fmt.Errorf("no input")
	}

	options := requestOptions{accessKey: c.config.AccessKey}
	for _, opt := range opts {
		opt(&options)
	}

	req := &common.EncodedRequest{
		Kind:           input.Kind(),
		Headers:        http.Header{},
		Output:         outputDecoder(input.Kind()),
		RaiseForStatus: options.raise,
	}
	if err := input.encode(container, req); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", input.Kind(), err)
	}
	if options.accessKey != "" {
		req.Headers.Set(common.HeaderSessionKey, options.accessKey)
	}
	return req, nil
}

// Do encodes and executes input. A response rejected by its status policy is
// returned together with the *common.HTTPStatusError.
func (c *Client) Do(container string, input Input, opts ...RequestOption) (*common.Response, error) {
	req, err := c.Encode(container, input, opts...)
	if err != nil {
		return nil, err
	}
	return invokeRequest(req, c.transport, common.RaiseDefault)
}

// NewBatch creates an empty batch on the transport of the client
func (c *Client) NewBatch() *Batch {
	return &Batch{client: c, transport: c.transport}
}

// Close closes the transport and all its connections
func (c *Client) Close() error {
	return c.transport.Close()
}

// doOutput executes input and returns its typed output
func doOutput[T any](c *Client, container string, input Input, opts []RequestOption) (T, *common.Response, error) {
	var zero T
	resp, err := c.Do(container, input, opts...)
	if err != nil {
		return zero, resp, err
	}
	out, err := OutputAs[T](resp)
	return out, resp, err
}
