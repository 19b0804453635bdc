// Package controlplane is the public surface of the filesystem control plane.
//
// A Plane composes the read cache, access log, volume enumerator, change
// watchers, backup manager, privileged writer and search engine, and owns
// their lifecycle:
//
//	Uninitialized -> Ready -> ShuttingDown -> Stopped
//
// Initialize starts the ledger forwarder, enumerates volumes and watches the
// configured critical roots. Shutdown waits for in-flight operations, stops
// every watcher, drains the forwarder, clears the cache and flushes the
// access log to the ledger as a final snapshot. Only Initialize is valid
// before Ready and nothing is valid after Stopped.
//
// The package is internal: callers embed a Plane from inside this module
// (cmd/fsplane does), and out-of-process collaborators reach it only through
// the read-only admin listener.
package controlplane
