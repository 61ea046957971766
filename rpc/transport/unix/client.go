package unix

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(endpoint *base.Endpoint) (net.Conn, error) {
	if endpoint.Network != "unix" {
		return nil, fmt.Errorf("unix connector cannot dial %s endpoint %s", endpoint.Network, endpoint.Address)
	}
	return net.Dial("unix", endpoint.Address)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, _ *base.Endpoint, _ common.ClientConfig) (net.Conn, error) {
	return conn, nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport() *base.ClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
