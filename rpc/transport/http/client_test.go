package http

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, retries int) *httpClientTransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr := &httpClientTransport{}
	if err := tr.Connect(common.ClientConfig{Endpoint: srv.URL, MaxConnections: 2, RetryCount: retries}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestHttpTransportRoundTrip(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(common.HeaderSessionKey) != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"path":%q,"query":%q}`, r.URL.Path, r.URL.RawQuery)
	}, 1)

	if tr.MaxConnections() != 2 {
		t.Errorf("Expected 2 max connections, got %d", tr.MaxConnections())
	}

	req := &common.EncodedRequest{
		Kind:    common.OpGetObject,
		Method:  http.MethodGet,
		Path:    "/bigdata/a b",
		Headers: http.Header{},
	}
	req.Headers.Set(common.HeaderSessionKey, "secret")

	inflight, err := tr.Send(req)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, err := tr.Receive(inflight, common.RaiseDefault)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !strings.Contains(string(resp.Body), `"/bigdata/a b"`) {
		t.Errorf("Unexpected body %s", resp.Body)
	}

	// a second receive of the same request is an error
	if _, err := tr.Receive(inflight, common.RaiseDefault); err == nil {
		t.Errorf("Expected an error on double receive")
	}

	req.Path = "/bigdata/missing"
	inflight, err = tr.Send(req)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, err = tr.Receive(inflight, common.RaiseDefault)
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected a 404 response, got %v", resp)
	}
	if !common.IsHTTPStatus(err) {
		t.Errorf("Expected a status error, got %v", err)
	}
}

func TestHttpTransportStatusNotRetried(t *testing.T) {
	var calls atomic.Int64
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}, 3)

	inflight, err := tr.Send(&common.EncodedRequest{Kind: common.OpGetItem, Method: http.MethodPut, Path: "/c/t/k"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := tr.Receive(inflight, common.RaiseNever); err != nil {
		t.Errorf("Expected no error with RaiseNever, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected status codes not to be retried, got %d calls", calls.Load())
	}
}

func TestHttpTransportRetriesConnectionError(t *testing.T) {
	var calls atomic.Int64
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		fmt.Fprint(w, `{}`)
	}, 1)

	inflight, err := tr.Send(&common.EncodedRequest{Kind: common.OpPutObject, Method: http.MethodPut, Path: "/c/obj", Body: []byte("payload")})
	if err != nil {
		t.Fatalf("Expected the retry to succeed, got %v", err)
	}
	if _, err := tr.Receive(inflight, common.RaiseDefault); err != nil {
		t.Errorf("Receive failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func TestHttpTransportClosed(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {}, 1)
	tr.Close()

	if _, err := tr.Send(&common.EncodedRequest{Method: http.MethodGet, Path: "/"}); !errors.Is(err, common.ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}
