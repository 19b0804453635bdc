package cache

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/shared/paths"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

const (
	// DefaultThreshold is the exclusive upper bound on cached file size
	DefaultThreshold int64 = 1 << 20
	// DefaultMaxEntries bounds resident entries
	DefaultMaxEntries = 4096
)

// ReadOptions controls a single read
type ReadOptions struct {
	// NoCache bypasses the cache for both lookup and insertion
	NoCache bool
	// Encoding, when set, fills FileRecord.Text
	Encoding types.Encoding
}

// Options configures a Cache
type Options struct {
	Fs         afero.Fs
	Threshold  int64
	MaxEntries int
	Logger     *zap.Logger
	Metrics    *monitoring.Metrics
}

// Cache maps absolute paths to file records
type Cache struct {
	fs        afero.Fs
	threshold int64
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	mu      sync.Mutex
	entries *simplelru.LRU
	pending map[string]*pendingRead
}

// pendingRead tracks disk reads in flight for a key so that an
// invalidation arriving mid-read can veto the insert
type pendingRead struct {
	readers int
	stale   bool
}

// New creates a cache
func New(opts Options) *Cache {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	entries, _ := simplelru.NewLRU(opts.MaxEntries, nil)
	return &Cache{
		fs:        opts.Fs,
		threshold: opts.Threshold,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		entries:   entries,
		pending:   make(map[string]*pendingRead),
	}
}

// Read returns the record for path, from the cache when possible
func (c *Cache) Read(ctx context.Context, path string, opts ReadOptions) (*types.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := filepath.Clean(path)

	if opts.NoCache {
		c.metrics.RecordCacheBypass("no_cache")
		rec, err := load(c.fs, key)
		if err != nil {
			return nil, err
		}
		return render(rec, opts.Encoding)
	}

	c.mu.Lock()
	if v, ok := c.entries.Get(key); ok {
		rec := v.(*types.FileRecord).Clone()
		c.mu.Unlock()
		c.metrics.RecordCacheHit()
		return render(rec, opts.Encoding)
	}
	c.beginRead(key)
	c.mu.Unlock()

	c.metrics.RecordCacheMiss()
	rec, err := load(c.fs, key)

	c.mu.Lock()
	stale := c.endRead(key)
	if err == nil {
		c.admit(key, rec, stale)
	}
	n := c.entries.Len()
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)

	if err != nil {
		return nil, err
	}
	return render(rec, opts.Encoding)
}

// admit inserts rec when it is eligible. Callers hold mu.
func (c *Cache) admit(key string, rec *types.FileRecord, stale bool) {
	switch {
	case stale:
		c.metrics.RecordCacheBypass("invalidated")
	case rec.IsDirectory:
		c.metrics.RecordCacheBypass("directory")
	case rec.Size >= c.threshold:
		c.metrics.RecordCacheBypass("oversize")
		c.logger.Debug("File exceeds cache threshold",
			zap.String("path", key),
			zap.String("size", humanize.IBytes(uint64(rec.Size))),
			zap.String("threshold", humanize.IBytes(uint64(c.threshold))),
		)
	default:
		c.entries.Add(key, rec.Clone())
	}
}

// Invalidate drops the entry for path. Invalidating an absent entry is a no-op.
func (c *Cache) Invalidate(path string) {
	key := filepath.Clean(path)

	c.mu.Lock()
	removed := c.entries.Remove(key)
	if p, ok := c.pending[key]; ok {
		p.stale = true
	}
	n := c.entries.Len()
	c.mu.Unlock()

	if removed {
		c.metrics.RecordInvalidations(1)
	}
	c.metrics.SetCacheEntries(n)
}

// InvalidateTree drops path and every entry beneath it
func (c *Cache) InvalidateTree(path string) int {
	root := filepath.Clean(path)

	c.mu.Lock()
	removed := 0
	for _, k := range c.entries.Keys() {
		key := k.(string)
		if paths.IsUnder(key, root) {
			c.entries.Remove(key)
			removed++
		}
	}
	for key, p := range c.pending {
		if paths.IsUnder(key, root) {
			p.stale = true
		}
	}
	n := c.entries.Len()
	c.mu.Unlock()

	c.metrics.RecordInvalidations(removed)
	c.metrics.SetCacheEntries(n)
	return removed
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := c.entries.Len()
	c.entries.Purge()
	for _, p := range c.pending {
		p.stale = true
	}
	c.mu.Unlock()

	c.metrics.RecordInvalidations(removed)
	c.metrics.SetCacheEntries(0)
}

// Contains reports whether path is resident without touching recency
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(filepath.Clean(path))
}

// Len returns the number of resident entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Threshold returns the exclusive size bound for cached files
func (c *Cache) Threshold() int64 {
	return c.threshold
}

func (c *Cache) beginRead(key string) {
	p, ok := c.pending[key]
	if !ok {
		p = &pendingRead{}
		c.pending[key] = p
	}
	p.readers++
}

func (c *Cache) endRead(key string) bool {
	p := c.pending[key]
	stale := p.stale
	p.readers--
	if p.readers == 0 {
		delete(c.pending, key)
	}
	return stale
}

func render(rec *types.FileRecord, enc types.Encoding) (*types.FileRecord, error) {
	if enc == "" || rec.IsDirectory {
		return rec, nil
	}
	text, err := rec.Decode(enc)
	if err != nil {
		return nil, err
	}
	rec.Text = text
	return rec, nil
}
