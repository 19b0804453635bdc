package controlplane

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/domain/cache"
	"github.com/GriffinCanCode/fsplane/internal/domain/privileged"
	"github.com/GriffinCanCode/fsplane/internal/domain/search"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
	"github.com/GriffinCanCode/fsplane/internal/shared/paths"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
	"github.com/GriffinCanCode/fsplane/internal/shared/utils"
)

var (
	// ErrProtectedPath directs callers to WriteSystemFile
	ErrProtectedPath = errors.New("path is protected, use WriteSystemFile")
	// ErrInvalidOperation is returned for unknown audited operations
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrLedgerBusy means a snapshot could not be queued
	ErrLedgerBusy = errors.New("ledger queue is full")
)

// ReadOptions controls a read
type ReadOptions struct {
	NoCache  bool
	Encoding types.Encoding
}

// WriteOptions controls an ordinary write
type WriteOptions struct {
	// NoBackup skips the simple backup of an existing target
	NoBackup bool
	// MkdirAll creates missing parent directories
	MkdirAll bool
}

// WriteResult describes a committed write
type WriteResult = privileged.WriteResult

// SearchOptions bounds a search; an empty Path searches the home directory
type SearchOptions struct {
	Path       string
	MaxResults int
	Shallow    bool
}

func (p *Plane) resolve(op, path string) (string, error) {
	abs, err := paths.Normalize(path, p.cfg.Host.Home)
	if err != nil {
		return "", fserr.New(fserr.ErrNotFound, op, path, err)
	}
	return abs, nil
}

func (p *Plane) protected(abs string) bool {
	for _, prefix := range p.cfg.Host.ProtectedPrefixes {
		if paths.IsUnder(abs, prefix) {
			return true
		}
	}
	return false
}

// Read returns the file at path, from the cache when possible
func (p *Plane) Read(ctx context.Context, path string, opts ReadOptions) (rec *types.FileRecord, err error) {
	timer := monitoring.NewTimer(p.metrics, "read")
	defer func() { timer.Stop(err) }()

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	abs, err := p.resolve("read", path)
	if err != nil {
		return nil, err
	}
	rec, err = p.cache.Read(ctx, abs, cache.ReadOptions{NoCache: opts.NoCache, Encoding: opts.Encoding})
	if err != nil {
		return nil, err
	}
	p.log.Log(types.OpRead, abs, p.actor(ctx))
	return rec, nil
}

// Write replaces path with content after a simple backup of the old file.
// Paths under a protected prefix are refused.
func (p *Plane) Write(ctx context.Context, path string, content []byte, opts WriteOptions) (res *WriteResult, err error) {
	const op = "write"
	timer := monitoring.NewTimer(p.metrics, op)
	defer func() { timer.Stop(err) }()

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	link, err := p.resolve(op, path)
	if err != nil {
		return nil, err
	}
	// writes land on the file a symlink points to, not on the link
	abs, err := utils.ResolveLinks(p.fs, link)
	if err != nil {
		return nil, fserr.Classify(op, link, err)
	}
	if p.protected(link) || p.protected(abs) {
		p.metrics.RecordWrite("standard", "protected")
		return nil, fserr.New(fserr.ErrPermissionDenied, op, abs, ErrProtectedPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.MkdirAll {
		if err := p.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fserr.Classify(op, abs, err)
		}
	}

	mode := fs.FileMode(0o644)
	info, statErr := p.fs.Stat(abs)
	switch {
	case statErr == nil && info.IsDir():
		return nil, fserr.New(fserr.ErrIO, op, abs, errors.New("is a directory"))
	case statErr == nil:
		mode = info.Mode().Perm()
	case !errors.Is(statErr, fs.ErrNotExist):
		return nil, fserr.Classify(op, abs, statErr)
	}

	var backup *types.BackupRecord
	if !opts.NoBackup {
		backup, err = p.backups.SimpleBackup(ctx, abs)
		if err != nil {
			p.metrics.RecordWrite("standard", "backup_failed")
			return nil, err
		}
	}

	if err := utils.WriteFileAtomic(p.fs, abs, content, mode); err != nil {
		p.metrics.RecordWrite("standard", "failed")
		return nil, fserr.Classify(op, abs, err)
	}
	p.cache.Invalidate(abs)
	if link != abs {
		p.cache.Invalidate(link)
	}
	p.log.Log(types.OpWrite, abs, p.actor(ctx))
	p.metrics.RecordWrite("standard", "ok")

	return &WriteResult{Path: abs, BytesWritten: int64(len(content)), Backup: backup}, nil
}

// WriteSystemFile writes a protected path through the privileged writer
func (p *Plane) WriteSystemFile(ctx context.Context, path string, content []byte) (res *WriteResult, err error) {
	const op = "write_system_file"
	timer := monitoring.NewTimer(p.metrics, op)
	defer func() { timer.Stop(err) }()

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	abs, err := p.resolve(op, path)
	if err != nil {
		return nil, err
	}
	res, err = p.writer.WriteSystemFile(ctx, abs, content)
	if err != nil {
		p.logger.Warn("System write failed",
			zap.String("path", abs),
			zap.String("kind", fserr.KindName(err)),
			zap.Error(err),
		)
		return nil, err
	}
	p.log.Log(types.OpWrite, res.Path, p.actor(ctx))
	return res, nil
}

// Search yields paths under opts.Path whose names match pattern. A walk in
// progress stops as soon as Shutdown begins, and later ranges yield nothing.
func (p *Plane) Search(ctx context.Context, pattern string, opts SearchOptions) (seq iter.Seq[string], err error) {
	const op = "search"
	timer := monitoring.NewTimer(p.metrics, op)
	defer func() { timer.Stop(err) }()

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	root := opts.Path
	if root == "" {
		root = p.cfg.Host.Home
	}
	abs, err := p.resolve(op, root)
	if err != nil {
		return nil, err
	}

	inner, err := p.search.Search(ctx, abs, pattern, search.Options{
		MaxResults: opts.MaxResults,
		Shallow:    opts.Shallow,
		Cancel:     p.stopping,
	})
	if err != nil {
		return nil, err
	}
	p.log.Log(types.OpSearch, abs, p.actor(ctx))

	return func(yield func(string) bool) {
		if p.State() != StateReady {
			return
		}
		for path := range inner {
			if !yield(path) {
				return
			}
		}
	}, nil
}

// Permissions decodes the permission bits of path
func (p *Plane) Permissions(ctx context.Context, path string) (*types.PermissionDescriptor, error) {
	const op = "permissions"
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	abs, err := p.resolve(op, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := p.fs.Stat(abs)
	if err != nil {
		return nil, fserr.Classify(op, abs, err)
	}
	desc := types.DescribePermissions(abs, info.Mode())
	return &desc, nil
}

// Statistics returns a point-in-time snapshot
func (p *Plane) Statistics() (types.Statistics, error) {
	if err := p.enter(); err != nil {
		return types.Statistics{}, err
	}
	defer p.leave()

	stats := types.Statistics{
		WatchedRootCount:  p.watchers.Count(),
		CachedEntryCount:  p.cache.Len(),
		RecentAccessCount: p.log.Len(),
	}
	if last, ok := p.log.Last(); ok {
		stats.LastAccess = &last
	}
	return stats, nil
}

// AccessLog returns up to limit recent entries, oldest first. A
// non-positive limit returns the whole log.
func (p *Plane) AccessLog(limit int) ([]types.AccessLogEntry, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if limit <= 0 {
		return p.log.Entries(), nil
	}
	return p.log.Recent(limit), nil
}

// RecordAccess appends an entry on behalf of an external collaborator
func (p *Plane) RecordAccess(ctx context.Context, op types.Operation, path string) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if !op.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	p.log.Log(op, path, p.actor(ctx))
	return nil
}

// SaveSnapshot forwards an arbitrary payload to the ledger
func (p *Plane) SaveSnapshot(ctx context.Context, glyphType string, payload any) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if glyphType == "" {
		return errors.New("snapshot type is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.forwarder.Submit(ledger.NewGlyph(glyphType, p.cfg.Ledger.District, payload, p.now())) {
		return ErrLedgerBusy
	}
	return nil
}

// Volumes returns the roots found at startup or by the last refresh
func (p *Plane) Volumes() ([]types.VolumeRoot, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.roots), nil
}

// RefreshVolumes enumerates volumes again
func (p *Plane) RefreshVolumes(ctx context.Context) ([]types.VolumeRoot, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	roots := p.volumes.List(ctx)
	p.mu.Lock()
	p.roots = roots
	p.mu.Unlock()
	return slices.Clone(roots), nil
}

// Backups lists the versioned backups of path, newest first
func (p *Plane) Backups(ctx context.Context, path string) ([]*types.BackupRecord, error) {
	const op = "backups"
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	abs, err := p.resolve(op, path)
	if err != nil {
		return nil, err
	}
	history, err := p.store.History(ctx, abs)
	if err != nil {
		return nil, fserr.New(fserr.ErrIO, op, abs, err)
	}
	slices.Reverse(history)
	return history, nil
}

// Watch starts watching an additional root
func (p *Plane) Watch(ctx context.Context, root string) error {
	const op = "watch"
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	abs, err := p.resolve(op, root)
	if err != nil {
		return err
	}
	if _, err := p.watchers.Watch(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	return nil
}

// Unwatch stops watching root
func (p *Plane) Unwatch(ctx context.Context, root string) error {
	const op = "unwatch"
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	abs, err := p.resolve(op, root)
	if err != nil {
		return err
	}
	if err := p.watchers.Unwatch(abs); err != nil {
		return fmt.Errorf("unwatch %s: %w", abs, err)
	}
	return nil
}

// WatchedRoots returns the roots being watched
func (p *Plane) WatchedRoots() ([]string, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.watchers.Roots(), nil
}
