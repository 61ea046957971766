package base

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint is a parsed service endpoint
type Endpoint struct {
	// Network is "tcp" or "unix"
	Network string
	// Address is host:port for tcp or the socket path for unix
	Address string
	// TLS is set for https endpoints
	TLS bool
	// ServerName is the host used for TLS verification
	ServerName string
	// BaseURL is used to build requests (scheme and Host header)
	BaseURL *url.URL
}

// ParseEndpoint parses http://host[:port], https://host[:port] and unix:///path endpoints.
// Missing ports default to 80 and 443.
func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(common.NormalizeEndpoint(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Hostname() == "" {
			return nil, fmt.Errorf("invalid endpoint %q: missing host", raw)
		}
		port := u.Port()
		if port == "" {
			port = "80"
			if u.Scheme == "https" {
				port = "443"
			}
		}
		return &Endpoint{
			Network:    "tcp",
			Address:    net.JoinHostPort(u.Hostname(), port),
			TLS:        u.Scheme == "https",
			ServerName: u.Hostname(),
			BaseURL:    &url.URL{Scheme: u.Scheme, Host: u.Host, Path: strings.TrimSuffix(u.Path, "/")},
		}, nil
	case "unix":
		if u.Path == "" {
			return nil, fmt.Errorf("invalid endpoint %q: missing socket path", raw)
		}
		return &Endpoint{
			Network: "unix",
			Address: u.Path,
			BaseURL: &url.URL{Scheme: "http", Host: "localhost"},
		}, nil
	default:
		return nil, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
}

// --------------------------------------------------------------------------
// Wire Helpers
// --------------------------------------------------------------------------

// writeRequest writes req as an HTTP/1.1 request and flushes the connection
func writeRequest(c *clientConnection, endpoint *Endpoint, req *common.EncodedRequest, timeout time.Duration) error {
	if !c.connected() {
		return net.ErrClosed
	}

	httpReq, err := req.NewHTTPRequest(endpoint.BaseURL)
	if err != nil {
		return err
	}

	if timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	if err := httpReq.Write(c.writer); err != nil {
		return err
	}
	return c.writer.Flush()
}

// readResponse reads one HTTP/1.1 response including its full body. The returned
// flag reports whether the server asked to close the connection.
func readResponse(c *clientConnection, req *common.EncodedRequest, timeout time.Duration) (*common.Response, bool, error) {
	if !c.connected() {
		return nil, false, net.ErrClosed
	}

	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, false, err
		}
	}

	// the method decides whether a body follows (HEAD)
	httpResp, err := http.ReadResponse(c.reader, &http.Request{Method: req.Method})
	if err != nil {
		return nil, false, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, false, err
	}

	return common.NewResponse(req, httpResp.StatusCode, httpResp.Header, body), httpResp.Close, nil
}
