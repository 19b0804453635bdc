package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// State is the lifecycle state of a watched root
type State int

const (
	StateUnwatched State = iota
	StateWatching
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnwatched:
		return "unwatched"
	case StateWatching:
		return "watching"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyWatching = errors.New("root is already watched")
	ErrClosed          = errors.New("watcher is closed")
	ErrNotWatched      = errors.New("root is not watched")
)

// Invalidator drops stale cache entries
type Invalidator interface {
	Invalidate(path string)
	InvalidateTree(path string) int
}

// Forwarder accepts normalized records without blocking
type Forwarder interface {
	Forward(rec types.ChangeRecord)
}

// Options configures root watchers
type Options struct {
	// Ignore holds doublestar patterns matched against root-relative paths
	Ignore  []string
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RootWatcher watches one root recursively
type RootWatcher struct {
	id   string
	root string
	inv  Invalidator
	fwd  Forwarder
	opts Options

	mu    sync.Mutex
	state State
	fsw   *fsnotify.Watcher
	done  chan struct{}
}

// NewRootWatcher creates an unwatched root
func NewRootWatcher(root string, inv Invalidator, fwd Forwarder, opts Options) *RootWatcher {
	return &RootWatcher{
		id:   uuid.NewString(),
		root: filepath.Clean(root),
		inv:  inv,
		fwd:  fwd,
		opts: opts.withDefaults(),
	}
}

// ID identifies this watch handle in logs
func (w *RootWatcher) ID() string { return w.id }

// Root returns the watched directory
func (w *RootWatcher) Root() string { return w.root }

// State returns the current lifecycle state
func (w *RootWatcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start registers the root and its subdirectories and begins dispatching
func (w *RootWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateWatching:
		return ErrAlreadyWatching
	case StateClosed:
		return ErrClosed
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher for %s: %w", w.root, err)
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.state = StateWatching
	w.addTree(w.root)

	go w.loop(fsw, w.done)

	w.opts.Logger.Info("Watching root", zap.String("root", w.root), zap.String("watch_id", w.id))
	return nil
}

// Close stops the watcher. Closing twice is a no-op.
func (w *RootWatcher) Close() error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return nil
	}
	prev := w.state
	w.state = StateClosed
	fsw, done := w.fsw, w.done
	w.mu.Unlock()

	if prev != StateWatching {
		return nil
	}
	err := fsw.Close()
	<-done
	w.opts.Logger.Info("Stopped watching root", zap.String("root", w.root), zap.String("watch_id", w.id))
	return err
}

func (w *RootWatcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.dispatch(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// events were lost; nothing under the root can be trusted
				n := w.inv.InvalidateTree(w.root)
				w.opts.Logger.Warn("Notification queue overflowed, invalidated root",
					zap.String("root", w.root),
					zap.Int("entries", n),
				)
				continue
			}
			w.opts.Logger.Warn("Watcher error", zap.String("root", w.root), zap.Error(err))
		}
	}
}

func (w *RootWatcher) dispatch(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.ignored(path) {
		return
	}

	rec := types.ChangeRecord{
		Kind:       Normalize(ev.Op),
		Path:       path,
		Root:       w.root,
		ObservedAt: w.opts.Now(),
	}

	switch rec.Kind {
	case types.ChangeDeleted, types.ChangeRenamed:
		w.inv.InvalidateTree(path)
	default:
		w.inv.Invalidate(path)
	}

	if rec.Kind == types.ChangeCreated {
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			w.addTreeTo(fsw, path)
		}
	}

	w.opts.Metrics.RecordWatchEvent(string(rec.Kind))
	w.fwd.Forward(rec)
}

// addTree registers dir and its subdirectories. Callers hold mu.
func (w *RootWatcher) addTree(dir string) {
	w.addTreeTo(w.fsw, dir)
}

func (w *RootWatcher) addTreeTo(fsw *fsnotify.Watcher, dir string) {
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.opts.Logger.Debug("Skipping unreadable directory", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d == nil || !d.IsDir() {
			return nil
		}
		if p != dir && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.opts.Logger.Debug("Failed to watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		w.opts.Logger.Warn("Failed to register subdirectories", zap.String("path", dir), zap.Error(err))
	}
}

func (w *RootWatcher) ignored(path string) bool {
	if len(w.opts.Ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.opts.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
			return true
		}
	}
	return false
}
