package base

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// testConnector dials the endpoint network without any upgrade
type testConnector struct{}

func (c *testConnector) GetName() string { return "test" }

func (c *testConnector) Connect(endpoint *Endpoint) (net.Conn, error) {
	return net.DialTimeout(endpoint.Network, endpoint.Address, time.Second)
}

func (c *testConnector) UpgradeConnection(conn net.Conn, _ *Endpoint, _ common.ClientConfig) (net.Conn, error) {
	return conn, nil
}

// faultyConnector is a testConnector whose connections fail the next writeFaults
// writes
type faultyConnector struct {
	testConnector
	writeFaults atomic.Int64
}

type faultyConn struct {
	net.Conn
	connector *faultyConnector
}

func (c *faultyConn) Write(b []byte) (int, error) {
	if c.connector.writeFaults.Add(-1) >= 0 {
		return 0, errors.New("injected write fault")
	}
	return c.Conn.Write(b)
}

func (c *faultyConnector) UpgradeConnection(conn net.Conn, _ *Endpoint, _ common.ClientConfig) (net.Conn, error) {
	return &faultyConn{Conn: conn, connector: c}, nil
}

// testServer is an httptest server that counts opened and closed connections
type testServer struct {
	*httptest.Server
	opened atomic.Int64
	closed atomic.Int64
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *testServer {
	t.Helper()
	s := &testServer{Server: httptest.NewUnstartedServer(handler)}
	s.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			s.opened.Add(1)
		case http.StateClosed, http.StateHijacked:
			s.closed.Add(1)
		}
	}
	s.Start()
	t.Cleanup(s.Close)
	return s
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
}

func newTestTransport(t *testing.T, endpoint string, maxConnections, retries int) *ClientTransport {
	t.Helper()
	tr := NewBaseClientTransport(&testConnector{})
	if err := tr.Connect(common.ClientConfig{
		Endpoint:       endpoint,
		MaxConnections: maxConnections,
		TimeoutSecond:  5,
		RetryCount:     retries,
	}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func getRequest(path string) *common.EncodedRequest {
	return &common.EncodedRequest{
		Kind:    common.OpGetObject,
		Method:  http.MethodGet,
		Path:    path,
		Headers: http.Header{},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func roundTrip(tr *ClientTransport, req *common.EncodedRequest, raise common.RaiseForStatus) (*common.Response, error) {
	inflight, err := tr.Send(req)
	if err != nil {
		return nil, err
	}
	return tr.Receive(inflight, raise)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTransportReusesConnections(t *testing.T) {
	const size = 4
	srv := newTestServer(t, okHandler)
	tr := newTestTransport(t, srv.URL, size, 1)

	// 2.5 times the pool size, issued concurrently
	var wg sync.WaitGroup
	errs := make(chan error, size*5/2)
	for i := 0; i < size*5/2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/bigdata/obj-%d", i)
			resp, err := roundTrip(tr, getRequest(path), common.RaiseDefault)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Contains(resp.Body, []byte(path)) {
				errs <- fmt.Errorf("response %s does not belong to %s", resp.Body, path)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Request failed: %v", err)
	}

	waitFor(t, "all connections accepted", func() bool { return srv.opened.Load() == size })
	if got := srv.opened.Load(); got != size {
		t.Errorf("Expected %d connections, got %d", size, got)
	}

	stats := tr.Stats()
	if stats.Requests != size*5/2 {
		t.Errorf("Expected %d requests, got %d", size*5/2, stats.Requests)
	}
	if stats.Pool.Free != size || stats.Pool.InUse != 0 {
		t.Errorf("Expected all %d connections free, got free=%d in_use=%d", size, stats.Pool.Free, stats.Pool.InUse)
	}

	tr.Pool().CloseAll()
	waitFor(t, "all connections closed", func() bool { return srv.closed.Load() == size })
	if got := tr.Pool().Stats().Closed; got != size {
		t.Errorf("Expected %d closed connections, got %d", size, got)
	}
}

func TestTransportRetriesReadFault(t *testing.T) {
	var faults atomic.Int64
	faults.Store(1)

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if faults.Add(-1) >= 0 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		okHandler(w, r)
	})
	tr := newTestTransport(t, srv.URL, 2, 1)

	inflight, err := tr.Send(getRequest("/bigdata/retry"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, err := tr.Receive(inflight, common.RaiseDefault)
	if err != nil {
		t.Fatalf("Expected the retry to succeed, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if inflight.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", inflight.Attempts)
	}

	stats := tr.Stats()
	if stats.Pool.Replaced != 1 {
		t.Errorf("Expected 1 replaced connection, got %d", stats.Pool.Replaced)
	}
	if stats.Pool.Free != 2 {
		t.Errorf("Expected the pool to keep its capacity, got %d free", stats.Pool.Free)
	}
}

func TestTransportRetriesExhausted(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	})
	// negative retry count disables retries
	tr := newTestTransport(t, srv.URL, 1, -1)

	_, err := roundTrip(tr, getRequest("/bigdata/broken"), common.RaiseDefault)
	if !common.IsConnection(err) {
		t.Fatalf("Expected a connection error, got %v", err)
	}
	var connErr *common.ConnectionError
	if errors.As(err, &connErr) && connErr.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", connErr.Attempts)
	}

	if stats := tr.Pool().Stats(); stats.Free != 1 || stats.InUse != 0 {
		t.Errorf("Expected the discarded slot to be free again, got free=%d in_use=%d", stats.Free, stats.InUse)
	}
}

func TestTransportWriteFault(t *testing.T) {
	const size = 2
	srv := newTestServer(t, okHandler)

	tests := []struct {
		name      string
		faults    int64
		wantError bool
	}{
		{"RetriedOnFreshConnection", 1, false},
		{"FailsAfterSecondFault", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := &faultyConnector{}
			tr := NewBaseClientTransport(connector)
			if err := tr.Connect(common.ClientConfig{Endpoint: srv.URL, MaxConnections: size, TimeoutSecond: 5}); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			defer tr.Close()
			connector.writeFaults.Store(tt.faults)

			resp, err := roundTrip(tr, getRequest("/bigdata/write"), common.RaiseDefault)
			if tt.wantError {
				var connErr *common.ConnectionError
				if !errors.As(err, &connErr) {
					t.Fatalf("Expected a connection error, got %v", err)
				}
				if connErr.Op != "send" || connErr.Attempts != 2 {
					t.Errorf("Expected a send error after 2 attempts, got %+v", connErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected the write retry to succeed, got %v", err)
				}
				if !bytes.Contains(resp.Body, []byte("/bigdata/write")) {
					t.Errorf("Unexpected body %s", resp.Body)
				}
			}

			stats := tr.Stats()
			if stats.Pool.Replaced != uint64(tt.faults) {
				t.Errorf("Expected %d replaced connections, got %d", tt.faults, stats.Pool.Replaced)
			}
			if stats.Reconnects != tt.faults {
				t.Errorf("Expected %d reconnects, got %d", tt.faults, stats.Reconnects)
			}
			if stats.Pool.Free != size || stats.Pool.InUse != 0 {
				t.Errorf("Expected all %d connections free, got free=%d in_use=%d", size, stats.Pool.Free, stats.Pool.InUse)
			}
		})
	}
}

func TestTransportRaiseForStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		okHandler(w, r)
	})
	tr := newTestTransport(t, srv.URL, 2, 1)

	tests := []struct {
		name      string
		path      string
		request   common.RaiseForStatus
		receive   common.RaiseForStatus
		wantError bool
	}{
		{"DefaultOn200", "/ok", common.RaiseDefault, common.RaiseDefault, false},
		{"DefaultOn404", "/missing", common.RaiseDefault, common.RaiseDefault, true},
		{"NeverOn404", "/missing", common.RaiseDefault, common.RaiseNever, false},
		{"AlwaysOn200", "/ok", common.RaiseDefault, common.RaiseAlways, true},
		{"RequestPolicyWins", "/missing", common.RaiseUnless(200, 404), common.RaiseAlways, false},
		{"RequestDefaultFallsBack", "/missing", common.RaiseDefault, common.RaiseUnless(404), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := getRequest(tt.path)
			req.RaiseForStatus = tt.request

			resp, err := roundTrip(tr, req, tt.receive)
			if resp == nil {
				t.Fatalf("Expected a response, got error %v", err)
			}
			if tt.wantError != common.IsHTTPStatus(err) {
				t.Errorf("Expected status error=%v, got %v", tt.wantError, err)
			}
			if tt.wantError && common.StatusCodeOf(err) != resp.StatusCode {
				t.Errorf("Expected status %d in error, got %d", resp.StatusCode, common.StatusCodeOf(err))
			}
		})
	}

	if free := tr.Pool().Stats().Free; free != 2 {
		t.Errorf("Expected status errors to release connections, got %d free", free)
	}
}

func TestTransportConnectionClose(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		okHandler(w, r)
	})
	tr := newTestTransport(t, srv.URL, 1, 1)

	for i := 0; i < 3; i++ {
		if _, err := roundTrip(tr, getRequest("/bigdata/close"), common.RaiseDefault); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}

	stats := tr.Pool().Stats()
	if stats.Replaced != 3 {
		t.Errorf("Expected 3 replaced connections, got %d", stats.Replaced)
	}
	if stats.Free != 1 {
		t.Errorf("Expected 1 free connection, got %d", stats.Free)
	}
	if stats := tr.Stats(); stats.Reconnects != 0 {
		t.Errorf("Expected no fault reconnects, got %d", stats.Reconnects)
	}
}

func TestTransportUnixSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "web.sock")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Skipf("Unix sockets not supported: %v", err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(okHandler))
	srv.Listener.Close()
	srv.Listener = listener
	srv.Start()
	defer srv.Close()

	tr := newTestTransport(t, "unix://"+socket, 2, 1)
	resp, err := roundTrip(tr, getRequest("/bigdata/sock"), common.RaiseDefault)
	if err != nil {
		t.Fatalf("Request over unix socket failed: %v", err)
	}
	if !bytes.Contains(resp.Body, []byte("/bigdata/sock")) {
		t.Errorf("Unexpected body %s", resp.Body)
	}
}

func TestTransportClosed(t *testing.T) {
	srv := newTestServer(t, okHandler)
	tr := newTestTransport(t, srv.URL, 2, 1)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := tr.Send(getRequest("/x")); !errors.Is(err, common.ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
	if common.IsRetryable(common.ErrPoolClosed) {
		t.Errorf("ErrPoolClosed must not be retryable")
	}
	if err := tr.Restart(); !errors.Is(err, common.ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed on restart, got %v", err)
	}
}

func TestTransportMetrics(t *testing.T) {
	srv := newTestServer(t, okHandler)
	tr := newTestTransport(t, srv.URL, 1, 1)

	if _, err := roundTrip(tr, getRequest("/m"), common.RaiseDefault); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	var buf bytes.Buffer
	tr.WriteMetrics(&buf)
	out := buf.String()

	for _, name := range []string{"dplane_pool_connections_created_total", "dplane_pool_acquire_wait_seconds", "request.latency"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected metric %s in output:\n%s", name, out)
		}
	}
}
