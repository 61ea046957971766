package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
	"github.com/ValentinKolb/dplane/rpc/transport/base"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/http")

// NewHttpClientTransport creates a transport that uses a net/http session with
// retries handled by go-retryablehttp
func NewHttpClientTransport() transport.IClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	mu      sync.RWMutex
	config  common.ClientConfig
	baseURL *url.URL
	client  *retryablehttp.Client
	closed  atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	endpoint, err := base.ParseEndpoint(config.Endpoint)
	if err != nil {
		return err
	}

	httpTransport := &http.Transport{
		MaxIdleConns:        config.MaxConnections,
		MaxIdleConnsPerHost: config.MaxConnections,
		MaxConnsPerHost:     config.MaxConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			ServerName:         endpoint.ServerName,
			InsecureSkipVerify: config.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}
	if endpoint.Network == "unix" {
		socket := endpoint.Address
		httpTransport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "unix", socket)
		}
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: httpTransport,
		Timeout:   config.Timeout(),
	}
	client.RetryMax = config.Retries()
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.CheckRetry = retryOnConnectionError
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = leveledLogger{Logger}
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			Logger.Debugf("Retrying %s %s (retry %d/%d)", req.Method, req.URL.Path, attempt, client.RetryMax)
		}
	}

	t.mu.Lock()
	old := t.client
	t.config = config
	t.baseURL = endpoint.BaseURL
	t.client = client
	t.mu.Unlock()
	t.closed.Store(false)

	if old != nil {
		old.HTTPClient.CloseIdleConnections()
	}

	Logger.Infof("Using http session transport to %s (max %d connections)", config.Endpoint, config.MaxConnections)
	return nil
}

// Send performs the whole round trip; the buffered response is kept in the
// in-flight handle until Receive is called
func (t *httpClientTransport) Send(req *common.EncodedRequest) (*transport.InFlightRequest, error) {
	client, baseURL, err := t.current()
	if err != nil {
		return nil, err
	}

	httpReq, err := req.NewHTTPRequest(baseURL)
	if err != nil {
		return nil, err
	}
	retryReq, err := retryablehttp.FromRequest(httpReq)
	if err != nil {
		return nil, err
	}

	inflight := transport.NewInFlightRequest(req)
	inflight.SentAt = time.Now()
	inflight.Attempts = 1
	Logger.Debugf("Tx [%s] %s", inflight.ID, req)

	httpResp, err := client.Do(retryReq)
	if err != nil {
		return nil, &common.ConnectionError{Op: "send", Endpoint: baseURL.Host, Attempts: client.RetryMax + 1, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &common.ConnectionError{Op: "receive", Endpoint: baseURL.Host, Attempts: 1, Err: err}
	}

	resp := common.NewResponse(req, httpResp.StatusCode, httpResp.Header, body)
	Logger.Debugf("Rx [%s] status=%d %d bytes in %s", inflight.ID, resp.StatusCode, len(body), time.Since(inflight.SentAt))

	inflight.Handle = resp
	return inflight, nil
}

func (t *httpClientTransport) Receive(inflight *transport.InFlightRequest, raise common.RaiseForStatus) (*common.Response, error) {
	resp, ok := inflight.Handle.(*common.Response)
	if !ok || resp == nil {
		return nil, fmt.Errorf("request %s is not in flight on this transport", inflight.ID)
	}
	inflight.Handle = nil

	policy := inflight.Request.RaiseForStatus.Or(raise)
	if err := resp.CheckStatus(policy); err != nil {
		Logger.Warningf("[%s] Response error: %v", inflight.ID, err)
		return resp, err
	}
	return resp, nil
}

func (t *httpClientTransport) MaxConnections() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.config.MaxConnections < 1 {
		return common.DefaultMaxConnections
	}
	return t.config.MaxConnections
}

func (t *httpClientTransport) Restart() error {
	client, _, err := t.current()
	if err != nil {
		return err
	}
	client.HTTPClient.CloseIdleConnections()
	return nil
}

func (t *httpClientTransport) Close() error {
	t.closed.Store(true)

	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()

	if client != nil {
		client.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (t *httpClientTransport) current() (*retryablehttp.Client, *url.URL, error) {
	if t.closed.Load() {
		return nil, nil, common.ErrPoolClosed
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.client == nil {
		return nil, nil, fmt.Errorf("http transport not initialized")
	}
	return t.client, t.baseURL, nil
}

// retryOnConnectionError retries transport failures only. Status codes are left
// to the RaiseForStatus policy of the request.
func retryOnConnectionError(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// leveledLogger adapts the package logger to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger logger.ILogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorf("%s%s", msg, formatKeysAndValues(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugf("%s%s", msg, formatKeysAndValues(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugf("%s%s", msg, formatKeysAndValues(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warningf("%s%s", msg, formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(keysAndValues []interface{}) string {
	var sb strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return sb.String()
}
