// Package http implements a transport on top of a net/http session. Unlike the
// pooled transport it does not manage connections itself: connection reuse is left
// to http.Transport and retries of failed round trips to go-retryablehttp.
//
// The package focuses on:
//   - An alternative to the pooled transport for environments where persistent
//     raw connections are not wanted (proxies, debugging)
//   - Retrying transport failures only; response status codes are never retried
//     and are enforced by the RaiseForStatus policy in Receive
//
// Key Components:
//
//   - httpClientTransport: Implements the IClientTransport interface. Send performs
//     the full round trip and buffers the response in the in-flight handle, so the
//     batch pipeline keeps at most MaxConnections requests outstanding.
//
//   - leveledLogger: Adapts the package logger to retryablehttp.LeveledLogger.
//
// Thread Safety:
//
//	The transport is thread-safe and can be used concurrently. Connect may be
//	called again to replace the underlying session.
package http
