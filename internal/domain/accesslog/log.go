// Package accesslog keeps a bounded, ordered record of recent file operations.
//
// The log is a ring: once it holds its capacity, every append evicts the
// oldest entry. Entries are stored by value and never mutated after append.
package accesslog

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// DefaultSize is the number of entries retained when no size is configured
const DefaultSize = 1000

// Log is a thread-safe circular buffer of access entries
type Log struct {
	mu      sync.RWMutex
	entries []types.AccessLogEntry
	head    int
	size    int
	now     func() time.Time
}

// Option configures a Log
type Option func(*Log)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates a log retaining at most max entries
func New(max int, opts ...Option) *Log {
	if max <= 0 {
		max = DefaultSize
	}
	l := &Log{
		entries: make([]types.AccessLogEntry, max),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log appends an entry stamped with the current time and returns it
func (l *Log) Log(op types.Operation, path, actor string) types.AccessLogEntry {
	entry := types.AccessLogEntry{
		Operation: op,
		Path:      path,
		Actor:     actor,
		Timestamp: l.now(),
	}
	l.Append(entry)
	return entry
}

// Append inserts a prepared entry, evicting the oldest when full
func (l *Log) Append(entry types.AccessLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.head] = entry
	l.head = (l.head + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
}

// Entries returns every retained entry, oldest first
func (l *Log) Entries() []types.AccessLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.tail(l.size)
}

// Recent returns up to limit of the newest entries, oldest first
func (l *Log) Recent(limit int) []types.AccessLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.size {
		limit = l.size
	}
	return l.tail(limit)
}

// Last returns the newest entry
func (l *Log) Last() (types.AccessLogEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.size == 0 {
		return types.AccessLogEntry{}, false
	}
	return l.entries[(l.head-1+len(l.entries))%len(l.entries)], true
}

// Len returns the number of retained entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the ring capacity
func (l *Log) Cap() int {
	return len(l.entries)
}

// Drain returns every retained entry, oldest first, and empties the log
func (l *Log) Drain() []types.AccessLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.tail(l.size)
	for i := range l.entries {
		l.entries[i] = types.AccessLogEntry{}
	}
	l.head, l.size = 0, 0
	return out
}

// tail copies the newest n entries in append order. Callers hold mu.
func (l *Log) tail(n int) []types.AccessLogEntry {
	out := make([]types.AccessLogEntry, 0, n)
	start := (l.head - n + len(l.entries)) % len(l.entries)
	for i := 0; i < n; i++ {
		out = append(out, l.entries[(start+i)%len(l.entries)])
	}
	return out
}
