// Package base provides the pooled transport of the client, independent of the
// specific network medium (TCP, TLS, Unix sockets). It serves as a base layer that
// is extended with protocol-specific connectors.
//
// The package focuses on:
//   - A fixed-size pool of persistent HTTP/1.1 connections, one request per
//     connection at a time
//   - Transparent replacement of faulted connections with bounded retries
//   - Status enforcement and response decoding shared by all connectors
//   - Metrics for the pool (VictoriaMetrics) and the requests (go-metrics)
//
// Key Components:
//
//   - IClientConnector: Interface for protocol-specific operations that allows
//     extending the base transport with different network media.
//
//   - ConnectionPool: Dials all connections up front and hands them out in FIFO
//     order. Acquire blocks until a connection is free. Faulted connections are
//     closed and replaced (or discarded and redialed on acquire), never repaired. Restart replaces the whole pool by
//     starting a new generation; handles of older generations are rejected.
//
//   - ClientTransport: Implements transport.IClientTransport on top of the pool.
//     A write fault is retried once on a fresh connection, a read fault re-sends
//     the request up to RetryCount times. Batches of one client are serialized.
//
// Thread Safety:
//
//	All public methods are thread-safe. A connection is owned by exactly one
//	goroutine between Acquire and Release or Replace.
package base
