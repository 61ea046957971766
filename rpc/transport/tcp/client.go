package tcp

import (
	"crypto/tls"
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport/base"
	"net"
	"time"
)

// dialTimeout bounds connection establishment independent of the request timeout
const dialTimeout = 10 * time.Second

// clientConnector implements the IClientConnector interface for TCP sockets
// (plain http and TLS for https endpoints)
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint *base.Endpoint) (net.Conn, error) {
	if endpoint.Network != "tcp" {
		return nil, fmt.Errorf("tcp connector cannot dial %s endpoint %s", endpoint.Network, endpoint.Address)
	}
	dialer := net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	return dialer.Dial("tcp", endpoint.Address)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, endpoint *base.Endpoint, config common.ClientConfig) (net.Conn, error) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// requests are flushed as a whole
		if err := tcpConn.SetNoDelay(true); err != nil {
			return nil, err
		}
	}

	if !endpoint.TLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         endpoint.ServerName,
		InsecureSkipVerify: config.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	})

	if err := tlsConn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		return nil, err
	}
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("tls handshake with %s failed: %w", endpoint.Address, err)
	}
	if err := tlsConn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() *base.ClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
