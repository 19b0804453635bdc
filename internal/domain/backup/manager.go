package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
	"github.com/GriffinCanCode/fsplane/internal/shared/id"
	"github.com/GriffinCanCode/fsplane/internal/shared/paths"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
	"github.com/GriffinCanCode/fsplane/internal/shared/utils"
)

// ErrCorrupt means a versioned payload no longer matches its digest
var ErrCorrupt = errors.New("backup payload does not match its digest")

// GlyphSink receives backup glyphs without blocking
type GlyphSink interface {
	Submit(g ledger.Glyph) bool
}

// Installer puts content at a target path. Restore uses one to write the
// backed-up bytes; the privileged writer supplies an elevated one.
type Installer interface {
	Install(ctx context.Context, target string, content []byte, mode fs.FileMode) error
	Remove(ctx context.Context, target string) error
}

// Options configures a Manager
type Options struct {
	Fs      afero.Fs
	Store   VersionStore
	Sink    GlyphSink
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Now     func() time.Time
}

// Manager takes and restores backups
type Manager struct {
	fs      afero.Fs
	store   VersionStore
	sink    GlyphSink
	hasher  *utils.Hasher
	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewManager creates a manager. A nil Store keeps versions in memory.
func NewManager(opts Options) *Manager {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		fs:      opts.Fs,
		store:   opts.Store,
		sink:    opts.Sink,
		hasher:  utils.DefaultHasher(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// Store returns the version store
func (m *Manager) Store() VersionStore {
	return m.store
}

// SimpleBackup copies path to a timestamped sibling. A missing path has
// nothing to protect and yields a nil record.
func (m *Manager) SimpleBackup(ctx context.Context, path string) (*types.BackupRecord, error) {
	const op = "simple_backup"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	info, err := m.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		// an existing source that cannot be read is an abort signal for the
		// mutation; the permission cause stays reachable through errors.Is
		m.metrics.RecordBackup(string(types.BackupSimple), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, err)
	}
	if info.IsDir() {
		m.metrics.RecordBackup(string(types.BackupSimple), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, errors.New("is a directory"))
	}

	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		m.metrics.RecordBackup(string(types.BackupSimple), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, err)
	}

	at := m.now()
	dst := paths.SimpleBackupPath(path, at)
	if err := utils.WriteFileAtomic(m.fs, dst, data, info.Mode()); err != nil {
		m.metrics.RecordBackup(string(types.BackupSimple), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, err)
	}

	rec := &types.BackupRecord{
		ID:           id.NewBackupID().String(),
		Kind:         types.BackupSimple,
		OriginalPath: path,
		BackupPath:   dst,
		ContentHash:  m.hasher.Hash(data),
		Size:         int64(len(data)),
		Mode:         info.Mode().Perm(),
		Existed:      true,
		CreatedAt:    at,
	}
	m.publish(rec)
	m.logger.Debug("Simple backup taken",
		zap.String("path", path),
		zap.String("backup_path", dst),
		zap.String("size", humanize.Bytes(uint64(rec.Size))),
	)
	return rec, nil
}

// VersionedBackup records the current bytes and digest of path in the
// version store. A missing path is recorded as a tombstone so a restore
// can put the target back to not existing.
func (m *Manager) VersionedBackup(ctx context.Context, path string) (*types.BackupRecord, error) {
	const op = "versioned_backup"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	rec := &types.BackupRecord{
		ID:           id.NewBackupID().String(),
		Kind:         types.BackupVersioned,
		OriginalPath: path,
		CreatedAt:    m.now(),
	}

	info, err := m.fs.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rec.ContentHash = m.hasher.Hash(nil)
	case err != nil:
		m.metrics.RecordBackup(string(types.BackupVersioned), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, err)
	case info.IsDir():
		m.metrics.RecordBackup(string(types.BackupVersioned), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, errors.New("is a directory"))
	default:
		data, err := afero.ReadFile(m.fs, path)
		if err != nil {
			m.metrics.RecordBackup(string(types.BackupVersioned), "failed")
			return nil, fserr.New(fserr.ErrIO, op, path, err)
		}
		rec.Payload = data
		rec.ContentHash = m.hasher.Hash(data)
		rec.Size = int64(len(data))
		rec.Mode = info.Mode().Perm()
		rec.Existed = true
	}

	if err := m.store.Put(ctx, rec); err != nil {
		m.metrics.RecordBackup(string(types.BackupVersioned), "failed")
		return nil, fserr.New(fserr.ErrIO, op, path, fmt.Errorf("failed to store version: %w", err))
	}

	m.publish(rec)
	m.logger.Info("Versioned backup recorded",
		zap.String("path", path),
		zap.String("backup_id", rec.ID),
		zap.Bool("existed", rec.Existed),
		zap.String("size", humanize.Bytes(uint64(rec.Size))),
	)
	return rec, nil
}

// Restore writes the backed-up content over target with the manager's
// filesystem
func (m *Manager) Restore(ctx context.Context, rec *types.BackupRecord, target string) error {
	return m.RestoreVia(ctx, rec, target, fsInstaller{fs: m.fs})
}

// RestoreVia writes the backed-up content over target through inst.
// Restoring a tombstone removes target. Failures carry ErrRestoreFailed.
func (m *Manager) RestoreVia(ctx context.Context, rec *types.BackupRecord, target string, inst Installer) error {
	const op = "restore"
	if rec == nil {
		return fserr.New(fserr.ErrRestoreFailed, op, target, errors.New("no backup record"))
	}

	if !rec.Existed {
		if err := inst.Remove(ctx, target); err != nil {
			return fserr.New(fserr.ErrRestoreFailed, op, target, err)
		}
		m.logger.Info("Restored tombstone", zap.String("path", target), zap.String("backup_id", rec.ID))
		return nil
	}

	content, err := m.content(rec)
	if err != nil {
		return fserr.New(fserr.ErrRestoreFailed, op, target, err)
	}
	mode := rec.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := inst.Install(ctx, target, content, mode); err != nil {
		return fserr.New(fserr.ErrRestoreFailed, op, target, err)
	}

	m.logger.Info("Restored backup",
		zap.String("path", target),
		zap.String("backup_id", rec.ID),
		zap.String("size", humanize.Bytes(uint64(len(content)))),
	)
	return nil
}

func (m *Manager) content(rec *types.BackupRecord) ([]byte, error) {
	data := rec.Payload
	if rec.Kind == types.BackupSimple {
		var err error
		data, err = afero.ReadFile(m.fs, rec.BackupPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read backup copy: %w", err)
		}
	}
	if rec.ContentHash != "" && !m.hasher.Verify(data, rec.ContentHash) {
		return nil, ErrCorrupt
	}
	return data, nil
}

// publish announces rec to the ledger without its payload
func (m *Manager) publish(rec *types.BackupRecord) {
	m.metrics.RecordBackup(string(rec.Kind), "ok")
	if m.sink == nil {
		return
	}
	meta := *rec
	meta.Payload = nil
	m.sink.Submit(ledger.NewGlyph(ledger.TypeBackup, "", meta, rec.CreatedAt))
}

type fsInstaller struct {
	fs afero.Fs
}

func (i fsInstaller) Install(_ context.Context, target string, content []byte, mode fs.FileMode) error {
	return utils.WriteFileAtomic(i.fs, target, content, mode)
}

func (i fsInstaller) Remove(_ context.Context, target string) error {
	err := i.fs.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
