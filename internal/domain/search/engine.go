// Package search walks directory trees for entries whose names match a
// glob, yielding paths lazily.
package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
)

// DefaultMaxResults bounds a search that sets no limit
const DefaultMaxResults = 100

// ErrBadPattern is returned for patterns doublestar cannot parse
var ErrBadPattern = errors.New("invalid search pattern")

// Options bounds one search
type Options struct {
	MaxResults int
	// Shallow lists the root only
	Shallow bool
	// Cancel, once closed, stops every walk of the sequence
	Cancel <-chan struct{}
}

// Engine runs searches against a filesystem
type Engine struct {
	fs         afero.Fs
	defaultMax int
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewEngine creates a search engine. A zero defaultMax uses DefaultMaxResults.
func NewEngine(fsys afero.Fs, defaultMax int, logger *zap.Logger, metrics *monitoring.Metrics) *Engine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if defaultMax <= 0 {
		defaultMax = DefaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{fs: fsys, defaultMax: defaultMax, logger: logger, metrics: metrics}
}

// Search returns the paths under root whose base name matches pattern.
//
// The sequence is depth-first in directory-listing order. A matching
// directory is yielded and not entered; other directories are entered
// unless opts.Shallow is set. Each range over the sequence restarts the
// walk. Walking stops when the consumer stops, when ctx is done or
// opts.Cancel is closed, or after MaxResults paths. Unreadable directories are logged and skipped.
func (e *Engine) Search(ctx context.Context, root, pattern string, opts Options) (iter.Seq[string], error) {
	const op = "search"
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	root = filepath.Clean(root)

	info, err := e.fs.Stat(root)
	if err != nil {
		return nil, fserr.Classify(op, root, err)
	}
	if !info.IsDir() {
		return nil, fserr.New(fserr.ErrIO, op, root, errors.New("not a directory"))
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = e.defaultMax
	}

	return func(yield func(string) bool) {
		n := 0
		e.walk(&walker{
			ctx:     ctx,
			cancel:  opts.Cancel,
			pattern: pattern,
			shallow: opts.Shallow,
			emit: func(p string) bool {
				n++
				e.metrics.RecordSearchYield()
				return yield(p) && n < limit
			},
		}, root)
	}, nil
}

type walker struct {
	ctx     context.Context
	cancel  <-chan struct{}
	pattern string
	shallow bool
	emit    func(string) bool
}

func (w *walker) stopped() bool {
	if w.ctx.Err() != nil {
		return true
	}
	select {
	case <-w.cancel:
		return true
	default:
		return false
	}
}

// walk reports false once emission should stop
func (e *Engine) walk(w *walker, dir string) bool {
	if w.stopped() {
		return false
	}

	entries, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		e.metrics.RecordSearchSkip()
		e.logger.Debug("Skipping unreadable directory", zap.String("path", dir), zap.Error(err))
		return true
	}

	for _, entry := range entries {
		if w.stopped() {
			return false
		}
		p := filepath.Join(dir, entry.Name())

		if ok, _ := doublestar.Match(w.pattern, entry.Name()); ok {
			if !w.emit(p) {
				return false
			}
			continue
		}
		if w.shallow || !entry.IsDir() || entry.Mode()&fs.ModeSymlink != 0 {
			continue
		}
		if !e.walk(w, p) {
			return false
		}
	}
	return true
}
