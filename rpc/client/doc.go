// Package client implements the client of the data service. It encodes typed
// operation inputs into wire requests, executes them over a transport and decodes
// the responses into typed outputs.
//
// The package focuses on:
//   - One input type per operation kind (containers, objects, items, streams)
//   - Pipelining many requests over all connections of a transport (Batch)
//   - Paging through table items (ItemsCursor)
//
// Key Components:
//
//   - Client: Created with NewClient (explicit transport) or NewDefaultClient (transport
//     selected by the configuration). Do executes one operation, Encode only encodes it.
//
//   - Batch: Keeps up to MaxConnections requests in flight, always waits for the oldest
//     one and returns the responses in submission order. Any error drops the batch and
//     restarts the transport.
//
//   - ItemsCursor: Iterates the items of a table across pages, following NextMarker
//     until the last page and honoring a total limit.
//
//   - KV, Object, Stream, Container: Convenience models on top of Do.
//
// Usage Example:
//
//	// Configure the client (unset fields are read from V3IO_* variables)
//	c, _ := client.NewDefaultClient(common.ClientConfig{
//	  Endpoint:       "http://localhost:8081",
//	  MaxConnections: 8,
//	})
//	defer c.Close()
//
//	// Write and read an item
//	c.KV.Put("bigdata", "users", "alice", map[string]any{"age": 42})
//	item, _ := c.KV.Get("bigdata", "users", "alice", nil)
//
//	// Read many objects in parallel
//	batch := c.NewBatch()
//	for _, path := range paths {
//	  batch.Add("bigdata", client.GetObjectInput{Path: path})
//	}
//	responses, err := batch.Wait(common.RaiseDefault)
//
// Thread Safety:
//
//	Client is thread-safe and can be used concurrently from multiple goroutines.
//	A Batch or an ItemsCursor must be used by a single goroutine.
package client
