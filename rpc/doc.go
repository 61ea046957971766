// Package rpc contains the client side of the dataplane protocol: everything
// between a structured operation and the bytes on a persistent HTTP/1.1
// connection.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the client,
//     including encoded requests, responses, the status policy, the error
//     taxonomy, configuration structures and logging.
//
//   - serializer: The typed-attribute codec (including packed arrays and
//     timestamps) and json/xml body handling.
//
//   - transport: Network communication abstractions with pluggable implementations.
//     The pooled transport (tcp, tls, unix sockets) keeps a fixed set of
//     persistent connections; the http transport is built on net/http sessions.
//
//   - client: The client with its KV, Object, Stream and Container models, the
//     batch pipeline and the items cursor.
package rpc
