// Package cmd implements the command-line interface of the dplane client. It
// provides a hierarchical command structure for working with the objects, tables
// and streams of a container.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for table items (put, get, scan, update, delete) and the perf benchmark
//   - object: Commands for objects (get, put, delete, head, ls)
//   - stream: Commands for streams (create, describe, seek, put, get, delete)
//   - container: The containers listing
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through a V3IO_ prefixed environment variable
// (e.g. V3IO_API, V3IO_ACCESS_KEY), optionally loaded from .env or .env.local.
//
// See dplane -help for a list of all commands.
package cmd
