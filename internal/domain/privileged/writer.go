// Package privileged writes files that need elevated rights.
//
// A write takes a versioned backup, stages the content in a private
// directory, and has the elevator copy it to a hidden sibling of the target
// before renaming it over the target. The target is therefore either the old
// file or the new one. When the commit fails the backup is restored the
// same way, and the error says whether the original survived.
package privileged

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/domain/backup"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/providers/elevation"
	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
	"github.com/GriffinCanCode/fsplane/internal/shared/id"
	"github.com/GriffinCanCode/fsplane/internal/shared/paths"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
	"github.com/GriffinCanCode/fsplane/internal/shared/utils"
)

const defaultMode fs.FileMode = 0o644

// Invalidator drops a cached path
type Invalidator interface {
	Invalidate(path string)
}

// WriteResult describes a committed privileged write
type WriteResult struct {
	Path         string              `json:"path"`
	BytesWritten int64               `json:"bytes_written"`
	Backup       *types.BackupRecord `json:"backup"`
	Duration     time.Duration       `json:"duration"`
}

// Options configures a Writer
type Options struct {
	Backups    *backup.Manager
	Elevator   elevation.Elevator
	Cache      Invalidator
	StagingDir string
	Logger     *zap.Logger
	Metrics    *monitoring.Metrics
}

// Writer performs backed-up elevated writes
type Writer struct {
	fs      afero.Fs
	backups *backup.Manager
	cache   Invalidator
	install *elevatedInstaller
	hasher  *utils.Hasher
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewWriter creates a privileged writer
func NewWriter(opts Options) *Writer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Writer{
		fs:      afero.NewOsFs(),
		backups: opts.Backups,
		cache:   opts.Cache,
		install: &elevatedInstaller{
			elevator:   opts.Elevator,
			stagingDir: opts.StagingDir,
			logger:     opts.Logger,
		},
		hasher:  utils.DefaultHasher(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// WriteSystemFile replaces path with content through the elevator.
//
// A failed backup aborts before anything is touched. A failed commit
// returns ErrElevationFailed when the original content is intact and
// ErrRestoreFailed, wrapping both causes, when it may not be.
func (w *Writer) WriteSystemFile(ctx context.Context, path string, content []byte) (*WriteResult, error) {
	const op = "write_system_file"
	start := time.Now()
	link := filepath.Clean(path)
	// the commit renames over its target, so resolve links first or the
	// link would be replaced instead of the file it points to
	path, err := utils.ResolveLinks(w.fs, link)
	if err != nil {
		w.metrics.RecordWrite("privileged", "backup_failed")
		return nil, fserr.Classify(op, link, err)
	}

	rec, err := w.backups.VersionedBackup(ctx, path)
	if err != nil {
		w.metrics.RecordWrite("privileged", "backup_failed")
		return nil, err
	}

	mode := rec.Mode
	if !rec.Existed || mode == 0 {
		mode = defaultMode
	}

	commitErr := w.install.Install(ctx, path, content, mode)
	if w.cache != nil {
		w.cache.Invalidate(path)
		if link != path {
			w.cache.Invalidate(link)
		}
	}
	if commitErr == nil {
		w.metrics.RecordWrite("privileged", "ok")
		w.logger.Info("Privileged write committed",
			zap.String("path", path),
			zap.String("backup_id", rec.ID),
			zap.Int("bytes", len(content)),
		)
		return &WriteResult{
			Path:         path,
			BytesWritten: int64(len(content)),
			Backup:       rec,
			Duration:     time.Since(start),
		}, nil
	}

	w.logger.Warn("Privileged commit failed, restoring",
		zap.String("path", path),
		zap.String("backup_id", rec.ID),
		zap.Error(commitErr),
	)

	if w.intact(path, rec) {
		w.metrics.RecordWrite("privileged", "elevation_failed")
		return nil, fserr.New(fserr.ErrElevationFailed, op, path, commitErr)
	}

	// the caller's context may be what failed the commit
	restoreErr := w.backups.RestoreVia(context.WithoutCancel(ctx), rec, path, w.install)
	if restoreErr != nil {
		w.metrics.RecordWrite("privileged", "restore_failed")
		w.logger.Error("Restore after failed commit failed",
			zap.String("path", path),
			zap.String("backup_id", rec.ID),
			zap.Error(restoreErr),
		)
		return nil, fserr.New(fserr.ErrRestoreFailed, op, path, errors.Join(commitErr, restoreErr))
	}

	w.metrics.RecordWrite("privileged", "elevation_failed")
	return nil, fserr.New(fserr.ErrElevationFailed, op, path, commitErr)
}

// intact reports whether path still matches the backup, in which case
// there is nothing to restore
func (w *Writer) intact(path string, rec *types.BackupRecord) bool {
	if !rec.Existed {
		_, err := os.Lstat(path)
		return errors.Is(err, fs.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return w.hasher.Verify(data, rec.ContentHash)
}

// elevatedInstaller stages content as the current user and commits it
// with elevated cp, chmod and mv into a sibling partial file
type elevatedInstaller struct {
	elevator   elevation.Elevator
	stagingDir string
	logger     *zap.Logger
}

func (i *elevatedInstaller) Install(ctx context.Context, target string, content []byte, mode fs.FileMode) error {
	staged, err := i.stage(content)
	if err != nil {
		return err
	}
	defer os.Remove(staged)

	partial := paths.PartialPath(target, strings.ToLower(id.Default().GenerateString()))
	steps := []elevation.Command{
		{Name: "cp", Args: []string{"--", staged, partial}},
		{Name: "chmod", Args: []string{fmt.Sprintf("%04o", mode.Perm()), partial}},
		{Name: "mv", Args: []string{"-f", "--", partial, target}},
	}
	for _, cmd := range steps {
		if err := i.run(ctx, cmd); err != nil {
			i.cleanup(ctx, partial)
			return err
		}
	}
	return nil
}

func (i *elevatedInstaller) Remove(ctx context.Context, target string) error {
	return i.run(ctx, elevation.Command{Name: "rm", Args: []string{"-f", "--", target}})
}

func (i *elevatedInstaller) stage(content []byte) (string, error) {
	f, err := os.CreateTemp(i.stagingDir, "fsplane-stage-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}
	return name, nil
}

func (i *elevatedInstaller) run(ctx context.Context, cmd elevation.Command) error {
	res, err := i.elevator.RunElevated(ctx, cmd)
	if err == nil && res != nil && res.ExitCode != 0 {
		err = fmt.Errorf("exit status %d", res.ExitCode)
	}
	if err != nil {
		if res != nil && res.Stderr != "" {
			return fmt.Errorf("%s: %w: %s", cmd.Name, err, strings.TrimSpace(res.Stderr))
		}
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

func (i *elevatedInstaller) cleanup(ctx context.Context, partial string) {
	rm := elevation.Command{Name: "rm", Args: []string{"-f", "--", partial}}
	if err := i.run(context.WithoutCancel(ctx), rm); err != nil {
		i.logger.Warn("Failed to remove partial file", zap.String("path", partial), zap.Error(err))
	}
}
