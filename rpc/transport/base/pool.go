package base

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var PoolLogger = logger.GetLogger("transport/pool")

// -----------------------------------------------------------
// Connection Handle
// -----------------------------------------------------------

// clientConnection represents a single persistent net connection. A handle is
// either free or in use, never both, and is replaced instead of repaired.
type clientConnection struct {
	id         uint64
	generation uint64
	pool       *ConnectionPool

	connMu sync.Mutex // Protects conn against concurrent close
	conn   net.Conn   // nil while disconnected
	reader *bufio.Reader
	writer *bufio.Writer
	closed bool
}

// connected reports whether the handle holds an open connection
func (c *clientConnection) connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil && !c.closed
}

// attach binds an established connection to a disconnected handle
func (c *clientConnection) attach(conn net.Conn) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed {
		conn.Close()
		return net.ErrClosed
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, 64*1024)
	c.writer = bufio.NewWriterSize(conn, 64*1024)
	return nil
}

// close closes the underlying connection. It is idempotent.
func (c *clientConnection) close() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			PoolLogger.Debugf("Closing connection %d: %v", c.id, err)
		}
		c.pool.closedConns.Inc()
	}
}

// -----------------------------------------------------------
// Connection Pool
// -----------------------------------------------------------

// PoolStats is a snapshot of the pool counters
type PoolStats struct {
	Size       int
	Free       int
	InUse      int
	Created    uint64 // successful dials
	Closed     uint64 // closed connections
	Replaced   uint64
	Restarts   uint64
	Generation uint64
}

// ConnectionPool is a fixed size pool of persistent connections to one endpoint.
// Acquire hands out free connections in FIFO order and blocks while none is free.
type ConnectionPool struct {
	connector IClientConnector
	config    common.ClientConfig
	endpoint  *Endpoint
	size      int

	mu         sync.Mutex
	cond       *sync.Cond
	free       []*clientConnection
	generation uint64
	closed     atomic.Bool

	inUse  *xsync.MapOf[uint64, *clientConnection]
	nextID atomic.Uint64

	metrics     *metrics.Set
	created     *metrics.Counter
	closedConns *metrics.Counter
	replaced    *metrics.Counter
	restarts    *metrics.Counter
	acquireWait *metrics.Histogram
}

// NewConnectionPool parses the configured endpoint and dials MaxConnections connections.
// Slots whose dial failed stay in the pool disconnected and are dialed on acquire.
// It fails if the endpoint is invalid or no connection could be opened.
func NewConnectionPool(connector IClientConnector, config common.ClientConfig) (*ConnectionPool, error) {
	endpoint, err := ParseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	size := config.MaxConnections
	if size < 1 {
		size = common.DefaultMaxConnections
	}

	p := &ConnectionPool{
		connector: connector,
		config:    config,
		endpoint:  endpoint,
		size:      size,
		inUse:     xsync.NewMapOf[uint64, *clientConnection](),
		metrics:   metrics.NewSet(),
	}
	p.cond = sync.NewCond(&p.mu)

	label := fmt.Sprintf(`{endpoint=%q,transport=%q}`, endpoint.Address, connector.GetName())
	p.created = p.metrics.NewCounter("dplane_pool_connections_created_total" + label)
	p.closedConns = p.metrics.NewCounter("dplane_pool_connections_closed_total" + label)
	p.replaced = p.metrics.NewCounter("dplane_pool_connections_replaced_total" + label)
	p.restarts = p.metrics.NewCounter("dplane_pool_restarts_total" + label)
	p.acquireWait = p.metrics.NewHistogram("dplane_pool_acquire_wait_seconds" + label)
	p.metrics.NewGauge("dplane_pool_connections_in_use"+label, func() float64 {
		return float64(p.inUse.Size())
	})
	p.metrics.NewGauge("dplane_pool_connections_free"+label, func() float64 {
		p.mu.Lock()
		defer p.mu.Unlock()
		return float64(len(p.free))
	})

	handles, connected, err := p.open(0)
	if connected == 0 {
		for _, h := range handles {
			h.close()
		}
		return nil, err
	}
	if err != nil {
		PoolLogger.Warningf("Connected %d out of %d connections to %s: %v", connected, size, endpoint.Address, err)
	}

	p.free = handles
	return p, nil
}

// Size returns the fixed capacity of the pool
func (p *ConnectionPool) Size() int {
	return p.size
}

// Endpoint returns the parsed endpoint of the pool
func (p *ConnectionPool) Endpoint() *Endpoint {
	return p.endpoint
}

// Acquire returns a free connection, blocking without bound until one is free.
// Disconnected slots are dialed before they are handed out.
func (p *ConnectionPool) Acquire() (*clientConnection, error) {
	start := time.Now()

	p.mu.Lock()
	for len(p.free) == 0 && !p.closed.Load() {
		p.cond.Wait()
	}
	if p.closed.Load() {
		p.mu.Unlock()
		return nil, common.ErrPoolClosed
	}
	conn := p.free[0]
	p.free[0] = nil
	p.free = p.free[1:]
	p.inUse.Store(conn.id, conn)
	p.mu.Unlock()

	p.acquireWait.UpdateDuration(start)

	if !conn.connected() {
		if err := p.dial(conn); err != nil {
			p.Release(conn)
			return nil, err
		}
	}
	return conn, nil
}

// Release returns a connection to the free set and wakes one waiter. Releasing a
// connection that is not in use (double release or stale generation) is ignored.
func (p *ConnectionPool) Release(conn *clientConnection) {
	if _, ok := p.inUse.LoadAndDelete(conn.id); !ok {
		PoolLogger.Debugf("Ignoring release of connection %d which is not in use", conn.id)
		return
	}

	p.mu.Lock()
	if p.closed.Load() || conn.generation != p.generation {
		p.mu.Unlock()
		conn.close()
		return
	}
	p.free = append(p.free, conn)
	p.cond.Signal()
	p.mu.Unlock()
}

// Replace closes a faulted in-use connection and opens a fresh one to the same
// endpoint which takes over the in-use slot. If the dial fails the fresh handle is
// still returned (disconnected) together with the error, so capacity is kept.
func (p *ConnectionPool) Replace(conn *clientConnection) (*clientConnection, error) {
	conn.close()

	if p.closed.Load() {
		p.inUse.Delete(conn.id)
		return nil, common.ErrPoolClosed
	}
	if _, ok := p.inUse.LoadAndDelete(conn.id); !ok {
		if conn.generation != p.currentGeneration() {
			return nil, common.ErrPoolRestarted
		}
		return nil, fmt.Errorf("connection %d is not in use", conn.id)
	}

	fresh := p.newHandle(conn.generation)
	p.inUse.Store(fresh.id, fresh)
	p.replaced.Inc()
	PoolLogger.Debugf("Replaced connection %d with %d", conn.id, fresh.id)

	return fresh, p.dial(fresh)
}

// Discard closes a faulted in-use connection and returns a disconnected handle in
// its place to the free set. The handle is dialed by the Acquire that takes it.
func (p *ConnectionPool) Discard(conn *clientConnection) {
	conn.close()
	if _, ok := p.inUse.LoadAndDelete(conn.id); !ok {
		PoolLogger.Debugf("Ignoring discard of connection %d which is not in use", conn.id)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() || conn.generation != p.generation {
		return
	}
	p.free = append(p.free, p.newHandle(conn.generation))
	p.replaced.Inc()
	p.cond.Signal()
}

// CloseAll closes every connection, free and in use. Every later Acquire fails with
// common.ErrPoolClosed. It is idempotent.
func (p *ConnectionPool) CloseAll() {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return
	}
	stale := p.free
	p.free = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	p.closeHandles(stale)
	PoolLogger.Infof("Closed connection pool to %s", p.endpoint.Address)
}

// Restart closes every connection and re-creates the pool in place. Connections
// handed out before the restart are closed when released or replaced.
func (p *ConnectionPool) Restart() error {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return common.ErrPoolClosed
	}
	p.generation++
	generation := p.generation
	stale := p.free
	p.free = nil
	p.mu.Unlock()

	p.closeHandles(stale)
	handles, connected, err := p.open(generation)

	p.mu.Lock()
	if p.closed.Load() || generation != p.generation {
		closed := p.closed.Load()
		p.mu.Unlock()
		for _, h := range handles {
			h.close()
		}
		if closed {
			return common.ErrPoolClosed
		}
		// superseded by a concurrent restart
		return nil
	}
	p.free = handles
	p.cond.Broadcast()
	p.mu.Unlock()

	p.restarts.Inc()
	PoolLogger.Infof("Restarted connection pool to %s (generation %d, %d/%d connected)", p.endpoint.Address, generation, connected, p.size)
	return err
}

// Stats returns a snapshot of the pool counters
func (p *ConnectionPool) Stats() PoolStats {
	p.mu.Lock()
	free := len(p.free)
	generation := p.generation
	p.mu.Unlock()

	return PoolStats{
		Size:       p.size,
		Free:       free,
		InUse:      p.inUse.Size(),
		Created:    p.created.Get(),
		Closed:     p.closedConns.Get(),
		Replaced:   p.replaced.Get(),
		Restarts:   p.restarts.Get(),
		Generation: generation,
	}
}

// WritePrometheus writes the pool metrics in Prometheus text format
func (p *ConnectionPool) WritePrometheus(w io.Writer) {
	p.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (p *ConnectionPool) currentGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *ConnectionPool) newHandle(generation uint64) *clientConnection {
	return &clientConnection{
		id:         p.nextID.Add(1),
		generation: generation,
		pool:       p,
	}
}

// open creates size handles of the given generation and dials each of them
func (p *ConnectionPool) open(generation uint64) ([]*clientConnection, int, error) {
	handles := make([]*clientConnection, 0, p.size)
	connected := 0
	var lastErr error

	for i := 0; i < p.size; i++ {
		h := p.newHandle(generation)
		if err := p.dial(h); err != nil {
			PoolLogger.Warningf("Failed to connect to %s (connection %d/%d): %v", p.endpoint.Address, i+1, p.size, err)
			lastErr = err
		} else {
			connected++
		}
		handles = append(handles, h)
	}

	PoolLogger.Debugf("Connected %d out of %d connections to %s using %s transport",
		connected, p.size, p.endpoint.Address, p.connector.GetName())
	return handles, connected, lastErr
}

// dial connects a disconnected handle
func (p *ConnectionPool) dial(h *clientConnection) error {
	raw, err := p.connector.Connect(p.endpoint)
	if err != nil {
		return &common.ConnectionError{Op: "dial", Endpoint: p.endpoint.Address, Attempts: 1, Err: err}
	}

	conn, err := p.connector.UpgradeConnection(raw, p.endpoint, p.config)
	if err != nil {
		raw.Close()
		return &common.ConnectionError{Op: "dial", Endpoint: p.endpoint.Address, Attempts: 1, Err: err}
	}

	if err := h.attach(conn); err != nil {
		return &common.ConnectionError{Op: "dial", Endpoint: p.endpoint.Address, Attempts: 1, Err: err}
	}
	p.created.Inc()
	return nil
}

// closeHandles closes the given handles and every handle currently in use
func (p *ConnectionPool) closeHandles(handles []*clientConnection) {
	for _, h := range handles {
		h.close()
	}
	p.inUse.Range(func(id uint64, h *clientConnection) bool {
		h.close()
		p.inUse.Delete(id)
		return true
	})
}
