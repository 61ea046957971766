package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"net"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint *Endpoint) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection.
	// It may wrap the connection (e.g. TLS) and returns the connection to use.
	UpgradeConnection(conn net.Conn, endpoint *Endpoint, config common.ClientConfig) (net.Conn, error)
}

// -----------------------------------------------------------
// Client Transport
// -----------------------------------------------------------

// TransportStats is a snapshot of the transport counters
type TransportStats struct {
	Pool PoolStats
	// Requests is the number of completed requests
	Requests int64
	// MeanLatency and P99Latency are measured from the (last) write to the full response
	MeanLatency time.Duration
	P99Latency  time.Duration
	// Reconnects counts connections replaced after a write or read fault
	Reconnects int64
}

// ClientTransport implements the pooled client transport independent of the
// specific transport medium (tcp, tls, unix)
type ClientTransport struct {
	connector IClientConnector

	mu     sync.RWMutex // Protects config and pool
	config common.ClientConfig
	pool   *ConnectionPool

	registry   gometrics.Registry
	latency    gometrics.Timer
	reconnects gometrics.Meter
	statusErrs gometrics.Counter
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) *ClientTransport {
	registry := gometrics.NewRegistry()
	return &ClientTransport{
		connector:  connector,
		registry:   registry,
		latency:    gometrics.GetOrRegisterTimer("request.latency", registry),
		reconnects: gometrics.GetOrRegisterMeter("connection.reconnects", registry),
		statusErrs: gometrics.GetOrRegisterCounter("request.status_errors", registry),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *ClientTransport) Connect(config common.ClientConfig) error {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	pool, err := NewConnectionPool(t.connector, config)
	if err != nil {
		return err
	}

	t.mu.Lock()
	old := t.pool
	t.config = config
	t.pool = pool
	t.mu.Unlock()

	// Close the connections of a previous Connect
	if old != nil {
		old.CloseAll()
	}

	stats := pool.Stats()
	Logger.Infof("Connected %d out of %d connections to %s using %s transport",
		stats.Created, stats.Size, pool.Endpoint().Address, t.connector.GetName())
	return nil
}

func (t *ClientTransport) Send(req *common.EncodedRequest) (*transport.InFlightRequest, error) {
	pool, config, err := t.current()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire()
	if err != nil {
		return nil, err
	}

	inflight := transport.NewInFlightRequest(req)

	// A write fault replaces the connection and retries the write exactly once
	var writeErr error
	for attempt := 1; attempt <= 2; attempt++ {
		writeErr = writeRequest(conn, pool.Endpoint(), req, config.Timeout())
		if writeErr == nil {
			inflight.Attempts++
			inflight.SentAt = time.Now()
			inflight.Handle = conn
			t.trace("Tx", inflight, conn, nil)
			return inflight, nil
		}

		Logger.Debugf("[%s] Write on connection %d failed (attempt %d/2): %v", inflight.ID, conn.id, attempt, writeErr)
		t.reconnects.Mark(1)

		fresh, replaceErr := pool.Replace(conn)
		if fresh == nil {
			return nil, &common.ConnectionError{Op: "send", Endpoint: pool.Endpoint().Address, Attempts: attempt, Err: errors.Join(writeErr, replaceErr)}
		}
		conn = fresh
		if replaceErr != nil {
			pool.Release(conn)
			return nil, &common.ConnectionError{Op: "send", Endpoint: pool.Endpoint().Address, Attempts: attempt, Err: errors.Join(writeErr, replaceErr)}
		}
	}

	pool.Release(conn)
	Logger.Errorf("[%s] Failed to send %s: %v", inflight.ID, req, writeErr)
	return nil, &common.ConnectionError{Op: "send", Endpoint: pool.Endpoint().Address, Attempts: 2, Err: writeErr}
}

func (t *ClientTransport) Receive(inflight *transport.InFlightRequest, raise common.RaiseForStatus) (*common.Response, error) {
	pool, config, err := t.current()
	if err != nil {
		return nil, err
	}

	conn, ok := inflight.Handle.(*clientConnection)
	if !ok || conn == nil {
		return nil, fmt.Errorf("request %s is not in flight on this transport", inflight.ID)
	}
	inflight.Handle = nil

	retriesLeft := config.Retries()
	resend := false

	for {
		var resp *common.Response
		var closeConn bool

		err = nil
		if resend {
			if err = writeRequest(conn, pool.Endpoint(), inflight.Request, config.Timeout()); err == nil {
				inflight.Attempts++
				inflight.SentAt = time.Now()
				t.trace("Tx", inflight, conn, nil)
			}
		}
		if err == nil {
			resp, closeConn, err = readResponse(conn, inflight.Request, config.Timeout())
		}

		if err == nil {
			t.latency.UpdateSince(inflight.SentAt)
			t.trace("Rx", inflight, conn, resp)

			// The server will close this connection, so it must not be reused
			if closeConn {
				if fresh, replaceErr := pool.Replace(conn); fresh != nil {
					if replaceErr != nil {
						Logger.Debugf("[%s] Reconnect after connection close failed: %v", inflight.ID, replaceErr)
					}
					pool.Release(fresh)
				}
			} else {
				pool.Release(conn)
			}

			policy := inflight.Request.RaiseForStatus.Or(raise)
			if statusErr := resp.CheckStatus(policy); statusErr != nil {
				t.statusErrs.Inc(1)
				Logger.Warningf("[%s] Response error: %v", inflight.ID, statusErr)
				return resp, statusErr
			}
			return resp, nil
		}

		// Read (or resend) fault: the connection is never reused. Without retries
		// left it is discarded and its slot redialed lazily.
		t.reconnects.Mark(1)
		if retriesLeft <= 0 {
			pool.Discard(conn)
			Logger.Errorf("[%s] Error occurred while waiting for response and ran out of retries: %v", inflight.ID, err)
			return nil, &common.ConnectionError{Op: "receive", Endpoint: pool.Endpoint().Address, Attempts: inflight.Attempts, Err: err}
		}

		fresh, replaceErr := pool.Replace(conn)
		if fresh == nil {
			return nil, &common.ConnectionError{Op: "receive", Endpoint: pool.Endpoint().Address, Attempts: inflight.Attempts, Err: errors.Join(err, replaceErr)}
		}
		conn = fresh

		if replaceErr != nil {
			pool.Release(conn)
			Logger.Errorf("[%s] Reconnect for retry failed: %v", inflight.ID, err)
			return nil, &common.ConnectionError{Op: "receive", Endpoint: pool.Endpoint().Address, Attempts: inflight.Attempts, Err: errors.Join(err, replaceErr)}
		}

		Logger.Debugf("[%s] Error occurred while waiting for response, retrying (%d retries left): %v", inflight.ID, retriesLeft, err)
		retriesLeft--
		resend = true
	}
}

func (t *ClientTransport) MaxConnections() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pool == nil {
		return t.config.MaxConnections
	}
	return t.pool.Size()
}

func (t *ClientTransport) Restart() error {
	pool, _, err := t.current()
	if err != nil {
		return err
	}
	return pool.Restart()
}

func (t *ClientTransport) Close() error {
	t.mu.RLock()
	pool := t.pool
	t.mu.RUnlock()

	if pool != nil {
		pool.CloseAll()
	}
	return nil
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// Pool returns the connection pool (nil before Connect)
func (t *ClientTransport) Pool() *ConnectionPool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pool
}

// Stats returns a snapshot of the transport and pool counters
func (t *ClientTransport) Stats() TransportStats {
	snapshot := t.latency.Snapshot()
	stats := TransportStats{
		Requests:    snapshot.Count(),
		MeanLatency: time.Duration(snapshot.Mean()),
		P99Latency:  time.Duration(snapshot.Percentile(0.99)),
		Reconnects:  t.reconnects.Snapshot().Count(),
	}
	if pool := t.Pool(); pool != nil {
		stats.Pool = pool.Stats()
	}
	return stats
}

// WriteMetrics writes the pool metrics (Prometheus text format) followed by the
// transport registry
func (t *ClientTransport) WriteMetrics(w io.Writer) {
	if pool := t.Pool(); pool != nil {
		pool.WritePrometheus(w)
	}
	gometrics.WriteOnce(t.registry, w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *ClientTransport) current() (*ConnectionPool, common.ClientConfig, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pool == nil {
		return nil, t.config, fmt.Errorf("%s transport not connected", t.connector.GetName())
	}
	return t.pool, t.config, nil
}

// trace logs a request (Tx) or response (Rx) line at debug level
func (t *ClientTransport) trace(direction string, inflight *transport.InFlightRequest, conn *clientConnection, resp *common.Response) {
	if resp == nil {
		Logger.Debugf("%s [%s] conn=%d attempt=%d %s", direction, inflight.ID, conn.id, inflight.Attempts, inflight.Request)
		return
	}
	Logger.Debugf("%s [%s] conn=%d status=%d %d bytes in %s", direction, inflight.ID, conn.id, resp.StatusCode, len(resp.Body), time.Since(inflight.SentAt))
}
