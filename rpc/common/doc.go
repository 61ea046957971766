// Package common provides the core data structures shared by the client, the
// transports and the CLI. It defines the wire-level request and response types,
// the operation kinds, the error taxonomy, configuration and logging.
//
// The package focuses on:
//   - The encoded request / response pair exchanged with a transport
//   - Status enforcement policies (RaiseForStatus)
//   - Typed errors that classify transport, protocol and status failures
//   - Client configuration resolved from explicit values and V3IO_* variables
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - EncodedRequest: An operation in wire form (method, path, query, headers,
//     body) plus the decoder of its typed output and its status policy. A
//     transport builds a fresh *http.Request from it for every (re)send.
//
//   - Response: Status, headers and body of a completed request. The typed
//     output is parsed lazily on first call to Output and cached.
//
//   - RaiseForStatus: RaiseDefault (status >= 300), RaiseNever, RaiseAlways and
//     RaiseUnless(codes...). The request's own policy wins over the one passed to
//     the transport unless it is RaiseDefault.
//
//   - OpKind: Enumeration of all supported operations, grouped into container,
//     object, KV and stream operations.
//
//   - ConnectionError, ProtocolError, HTTPStatusError: The error taxonomy. Only
//     connection errors are retried (inside the transport).
//
//   - ClientConfig: Endpoint, credential, pool size, timeouts, retries, transport
//     selection and logging. LoadClientConfig fills unset fields from the
//     environment (V3IO_API, V3IO_ACCESS_KEY, ...).
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
