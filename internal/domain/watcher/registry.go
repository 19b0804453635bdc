package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry owns the watcher for every watched root
type Registry struct {
	inv  Invalidator
	fwd  Forwarder
	opts Options

	mu       sync.Mutex
	watchers map[string]*RootWatcher
}

// NewRegistry creates an empty registry
func NewRegistry(inv Invalidator, fwd Forwarder, opts Options) *Registry {
	return &Registry{
		inv:      inv,
		fwd:      fwd,
		opts:     opts.withDefaults(),
		watchers: make(map[string]*RootWatcher),
	}
}

// SelectRoots keeps the candidates that exist and are directories,
// dropping duplicates. Missing candidates are skipped silently.
func SelectRoots(candidates []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		root := filepath.Clean(c)
		if seen[root] {
			continue
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

// Watch starts watching root
func (r *Registry) Watch(root string) (*RootWatcher, error) {
	root = filepath.Clean(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watchers[root]; ok {
		return nil, ErrAlreadyWatching
	}
	w := NewRootWatcher(root, r.inv, r.fwd, r.opts)
	if err := w.Start(); err != nil {
		return nil, err
	}
	r.watchers[root] = w
	r.opts.Metrics.SetWatchedRoots(len(r.watchers))
	return w, nil
}

// WatchAll starts every selectable candidate and returns the roots now watched.
// Individual failures are logged and skipped.
func (r *Registry) WatchAll(candidates []string) []string {
	var started []string
	for _, root := range SelectRoots(candidates) {
		if _, err := r.Watch(root); err != nil {
			r.opts.Logger.Warn("Failed to watch root", zap.String("root", root), zap.Error(err))
			continue
		}
		started = append(started, root)
	}
	return started
}

// Unwatch stops watching root
func (r *Registry) Unwatch(root string) error {
	root = filepath.Clean(root)

	r.mu.Lock()
	w, ok := r.watchers[root]
	delete(r.watchers, root)
	n := len(r.watchers)
	r.mu.Unlock()

	if !ok {
		return ErrNotWatched
	}
	r.opts.Metrics.SetWatchedRoots(n)
	return w.Close()
}

// Roots returns the watched roots sorted
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots := make([]string, 0, len(r.watchers))
	for root := range r.watchers {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Count returns the number of watched roots
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// CloseAll stops every watcher concurrently and empties the registry
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	watchers := r.watchers
	r.watchers = make(map[string]*RootWatcher)
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, w := range watchers {
		g.Go(w.Close)
	}
	err := g.Wait()
	r.opts.Metrics.SetWatchedRoots(0)
	return err
}
