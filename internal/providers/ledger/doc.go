// Package ledger connects the control plane to the external decision ledger.
//
// The ledger accepts glyphs: typed, timestamped records tagged with a
// district. The control plane emits three kinds of its own:
//   - fs.change: one per normalized change event
//   - fs.backup: one per versioned backup
//   - fs.access_log: the access log contents, flushed once at shutdown
//
// Sinks:
//   - Badger: durable local store, keyed by glyph ID
//   - File: append-only JSON lines
//   - HTTP: POST {url}/glyphs through a retrying client and circuit breaker
//   - Memory, Nop: embedding and tests
//
// Change events reach the ledger through a Forwarder: a bounded queue with a
// single worker. Forward never blocks the caller; a full queue drops the glyph
// and ledger failures are logged, never returned.
package ledger
