// Package unix implements the unix domain socket connector of the pooled transport.
// It serves unix:///path endpoints, typically a web gateway running on the same machine.
//
// This package extends the base transport layer with a Unix socket-specific connector
// while inheriting all core functionality like connection pooling, reconnect-and-retry
// and error handling from the base package. Requests carry "localhost" as Host header.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - NewUnixClientTransport: Factory for a pooled transport over a unix socket
package unix
