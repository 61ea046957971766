// Package transport defines the interface between the client and the network layer.
// A transport sends encoded requests over HTTP/1.1 and turns the answers into
// responses, hiding connection management and retries from the caller.
//
// The package focuses on:
//   - Defining a clear, split send / receive contract so that callers can keep
//     several requests in flight (pipelining over a bounded pool)
//   - Enabling multiple transport implementations (pooled persistent connections
//     over TCP, TLS or unix sockets, and a net/http session transport)
//
// Key Components:
//
//   - IClientTransport: Interface for client-side transport implementations that
//     handles connection management, request sending and response receiving.
//
//   - InFlightRequest: A request between Send and Receive. It carries the encoded
//     request, a uuid used to correlate log lines and a transport-owned handle.
package transport
