// Package tcp implements the TCP connector of the pooled transport. It dials
// http:// endpoints as plain TCP and wraps https:// endpoints in TLS (certificate
// verification can be disabled with ClientConfig.InsecureSkipVerify).
//
// This package builds on the base package's transport functionality, inheriting its
// connection pool, reconnect-and-retry logic and metrics. See the base package
// documentation for detailed information on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP/TLS-specific implementation of base.IClientConnector
//
//   - NewTCPClientTransport: Factory for a pooled transport over TCP
package tcp
