// Package volume discovers the top-level entry points of the host filesystem.
//
// On drive-letter platforms every letter is checked and only accessible
// drives are kept. Elsewhere the mount table is read, entries under kernel
// and package pseudo trees (/proc, /sys, /dev, /run, /snap) are dropped, and
// the conventional mount namespaces (/Volumes, /mnt, /media) are listed.
// Per-candidate failures are logged and skipped; enumeration itself never
// fails.
//
// A kept root is Reachable when its usage could be read, on every platform.
package volume

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// Enumerator lists volume roots
type Enumerator struct {
	goos       string
	namespaces []string
	logger     *zap.Logger

	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
	stat       func(name string) (os.FileInfo, error)
	readDir    func(name string) ([]os.DirEntry, error)
}

// Option configures an Enumerator
type Option func(*Enumerator)

// WithPlatform overrides the detected GOOS
func WithPlatform(goos string) Option {
	return func(e *Enumerator) { e.goos = goos }
}

// WithNamespaces overrides the mount namespace directories that are listed
func WithNamespaces(dirs ...string) Option {
	return func(e *Enumerator) { e.namespaces = append([]string{}, dirs...) }
}

// WithSources replaces the disk and filesystem lookups
func WithSources(
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error),
	usage func(ctx context.Context, path string) (*disk.UsageStat, error),
	stat func(name string) (os.FileInfo, error),
	readDir func(name string) ([]os.DirEntry, error),
) Option {
	return func(e *Enumerator) {
		if partitions != nil {
			e.partitions = partitions
		}
		if usage != nil {
			e.usage = usage
		}
		if stat != nil {
			e.stat = stat
		}
		if readDir != nil {
			e.readDir = readDir
		}
	}
}

// New creates an enumerator for the running platform
func New(logger *zap.Logger, opts ...Option) *Enumerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Enumerator{
		goos:       runtime.GOOS,
		logger:     logger,
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
		stat:       os.Stat,
		readDir:    os.ReadDir,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.namespaces == nil {
		e.namespaces = defaultNamespaces(e.goos)
	}
	return e
}

// List returns the discovered roots sorted by path
func (e *Enumerator) List(ctx context.Context) []types.VolumeRoot {
	var roots []types.VolumeRoot
	if e.goos == "windows" {
		roots = e.drives(ctx)
	} else {
		roots = e.mounts(ctx)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	return roots
}

func (e *Enumerator) drives(ctx context.Context) []types.VolumeRoot {
	var roots []types.VolumeRoot
	for letter := 'A'; letter <= 'Z'; letter++ {
		if ctx.Err() != nil {
			break
		}
		path := string(letter) + `:\`
		info, err := e.stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		root := types.VolumeRoot{Path: path, Kind: types.VolumeDrive}
		root.Reachable = e.fillUsage(ctx, &root)
		roots = append(roots, root)
	}
	return roots
}

func (e *Enumerator) mounts(ctx context.Context) []types.VolumeRoot {
	seen := make(map[string]bool)
	var roots []types.VolumeRoot

	add := func(root types.VolumeRoot) {
		if seen[root.Path] {
			return
		}
		info, err := e.stat(root.Path)
		if err != nil || !info.IsDir() {
			e.logger.Debug("Skipping volume candidate", zap.String("path", root.Path), zap.Error(err))
			return
		}
		seen[root.Path] = true
		root.Reachable = e.fillUsage(ctx, &root)
		roots = append(roots, root)
	}

	parts, err := e.partitions(ctx, false)
	if err != nil {
		e.logger.Warn("Failed to read mount table", zap.Error(err))
	}
	for _, part := range parts {
		mountpoint := filepath.Clean(part.Mountpoint)
		if !primaryMount(mountpoint) {
			e.logger.Debug("Skipping pseudo mount", zap.String("path", mountpoint), zap.String("fstype", part.Fstype))
			continue
		}
		add(types.VolumeRoot{
			Path:   mountpoint,
			Kind:   types.VolumeMount,
			Device: part.Device,
			FSType: part.Fstype,
		})
	}

	for _, ns := range e.namespaces {
		entries, err := e.readDir(ns)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			add(types.VolumeRoot{Path: filepath.Join(ns, entry.Name()), Kind: types.VolumeMount})
		}
	}
	return roots
}

func (e *Enumerator) fillUsage(ctx context.Context, root *types.VolumeRoot) bool {
	usage, err := e.usage(ctx, root.Path)
	if err != nil {
		e.logger.Debug("Volume usage unavailable", zap.String("path", root.Path), zap.Error(err))
		return false
	}
	root.TotalBytes = usage.Total
	root.FreeBytes = usage.Free
	if root.FSType == "" {
		root.FSType = usage.Fstype
	}
	return true
}

// pseudoTrees hold kernel and package mounts that are not storage roots
var pseudoTrees = []string{"/proc", "/sys", "/dev", "/run", "/snap"}

// primaryMount reports whether a mount point belongs to the root namespace
// and is not part of a pseudo tree. Removable media under /run/media stay.
func primaryMount(mountpoint string) bool {
	if !filepath.IsAbs(mountpoint) {
		return false
	}
	if mountpoint == "/run/media" || strings.HasPrefix(mountpoint, "/run/media/") {
		return true
	}
	for _, tree := range pseudoTrees {
		if mountpoint == tree || strings.HasPrefix(mountpoint, tree+"/") {
			return false
		}
	}
	return true
}

func defaultNamespaces(goos string) []string {
	switch goos {
	case "windows":
		return nil
	case "darwin":
		return []string{"/Volumes"}
	default:
		return []string{"/mnt", "/media"}
	}
}
