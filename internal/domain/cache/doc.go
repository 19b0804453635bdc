// Package cache is the read cache in front of the host filesystem.
//
// Reads populate the cache only for regular files smaller than the size
// threshold. Larger files are read through and never retained. Entries have
// no TTL: they stay until an explicit invalidation (a write, a change event,
// a shutdown) or until the entry bound evicts the least recently used one.
//
// A read that races with an invalidation of the same path does not insert
// its result, so an invalidation that has returned is never undone by a
// slower read that started before it.
package cache
