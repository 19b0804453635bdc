// Package watcher turns filesystem notifications into cache invalidations
// and ledger records.
//
// Each watched root owns one fsnotify watcher and one goroutine. Roots are
// watched recursively: every subdirectory is registered at start, and
// directories created later are registered as their events arrive.
//
// For every event the watcher first invalidates the affected cache entries
// and only then hands the normalized record to the forwarder, so a reader
// that observes the ledger record never sees the stale cached content.
//
// A root moves through Unwatched, Watching and Closed. Closed is terminal.
package watcher
