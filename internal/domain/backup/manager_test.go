package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

var ctx = context.Background()

var fixed = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type sinkRecorder struct {
	glyphs []ledger.Glyph
}

func (s *sinkRecorder) Submit(g ledger.Glyph) bool {
	s.glyphs = append(s.glyphs, g)
	return true
}

func newManager(t *testing.T, files map[string]string) (*Manager, afero.Fs, *sinkRecorder) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o640))
	}
	sink := &sinkRecorder{}
	m := NewManager(Options{Fs: fsys, Sink: sink, Now: func() time.Time { return fixed }})
	return m, fsys, sink
}

func TestSimpleBackup(t *testing.T) {
	m, fsys, sink := newManager(t, map[string]string{"/home/u/notes.txt": "hello"})

	rec, err := m.SimpleBackup(ctx, "/home/u/notes.txt")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, types.BackupSimple, rec.Kind)
	assert.Equal(t, "/home/u/notes.txt.backup-20240506T070809.000000000Z", rec.BackupPath)
	assert.Equal(t, int64(5), rec.Size)
	assert.Equal(t, fs.FileMode(0o640), rec.Mode)
	assert.True(t, rec.Existed)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Nil(t, rec.Payload)

	data, err := afero.ReadFile(fsys, rec.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.Len(t, sink.glyphs, 1)
	assert.Equal(t, ledger.TypeBackup, sink.glyphs[0].Type)
}

func TestSimpleBackupMissingPath(t *testing.T) {
	m, _, sink := newManager(t, nil)

	rec, err := m.SimpleBackup(ctx, "/nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, sink.glyphs)
}

func TestSimpleBackupDirectory(t *testing.T) {
	m, fsys, _ := newManager(t, nil)
	require.NoError(t, fsys.MkdirAll("/dir", 0o755))

	_, err := m.SimpleBackup(ctx, "/dir")
	assert.ErrorIs(t, err, fserr.ErrIO)
}

func TestVersionedBackup(t *testing.T) {
	m, _, sink := newManager(t, map[string]string{"/etc/hosts": "127.0.0.1 localhost\n"})

	rec, err := m.VersionedBackup(ctx, "/etc/hosts")
	require.NoError(t, err)

	assert.Equal(t, types.BackupVersioned, rec.Kind)
	assert.Equal(t, "127.0.0.1 localhost\n", string(rec.Payload))
	assert.Len(t, rec.ContentHash, 64)
	assert.True(t, rec.Existed)

	history, err := m.Store().History(ctx, "/etc/hosts")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)
	assert.Equal(t, rec.Payload, history[0].Payload)

	// the ledger sees metadata only
	require.Len(t, sink.glyphs, 1)
	meta, ok := sink.glyphs[0].Payload.(types.BackupRecord)
	require.True(t, ok)
	assert.Nil(t, meta.Payload)
	assert.Equal(t, rec.ContentHash, meta.ContentHash)
}

func TestVersionedBackupTombstone(t *testing.T) {
	m, _, _ := newManager(t, nil)

	rec, err := m.VersionedBackup(ctx, "/etc/new.conf")
	require.NoError(t, err)
	assert.False(t, rec.Existed)
	assert.Empty(t, rec.Payload)
}

type failingStore struct{ VersionStore }

func (failingStore) Put(context.Context, *types.BackupRecord) error {
	return errors.New("disk full")
}

func TestVersionedBackupStoreFailure(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/hosts", []byte("x"), 0o644))
	m := NewManager(Options{Fs: fsys, Store: failingStore{}})

	_, err := m.VersionedBackup(ctx, "/etc/hosts")
	assert.ErrorIs(t, err, fserr.ErrIO)
}

func TestVersionedBackupUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	dir := t.TempDir()
	path := dir + "/secret"
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o000))

	m := NewManager(Options{})
	_, err := m.VersionedBackup(ctx, path)
	assert.ErrorIs(t, err, fserr.ErrIO)
}

func TestBackupOfUnreachableSourceIsIOError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can stat anything")
	}
	dir := t.TempDir()
	locked := dir + "/locked"
	require.NoError(t, os.Mkdir(locked, 0o755))
	require.NoError(t, os.WriteFile(locked+"/secret", []byte("x"), 0o600))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	m := NewManager(Options{})

	_, err := m.SimpleBackup(ctx, locked+"/secret")
	assert.ErrorIs(t, err, fserr.ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, fserr.ErrPermissionDenied)

	_, err = m.VersionedBackup(ctx, locked+"/secret")
	assert.ErrorIs(t, err, fserr.ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, fserr.ErrPermissionDenied)
}

func TestBackupReadFailureKeepsCause(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	dir := t.TempDir()
	path := dir + "/secret"
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o000))

	m := NewManager(Options{})
	_, err := m.SimpleBackup(ctx, path)
	assert.ErrorIs(t, err, fserr.ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestRestoreRoundTrip(t *testing.T) {
	m, fsys, _ := newManager(t, map[string]string{"/etc/app.conf": "original"})

	rec, err := m.VersionedBackup(ctx, "/etc/app.conf")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fsys, "/etc/app.conf", []byte("corrupt"), 0o600))
	require.NoError(t, m.Restore(ctx, rec, "/etc/app.conf"))

	data, err := afero.ReadFile(fsys, "/etc/app.conf")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	info, err := fsys.Stat("/etc/app.conf")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm())
}

func TestRestoreSimpleBackup(t *testing.T) {
	m, fsys, _ := newManager(t, map[string]string{"/home/u/a.txt": "first"})

	rec, err := m.SimpleBackup(ctx, "/home/u/a.txt")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, "/home/u/a.txt", []byte("second"), 0o640))

	require.NoError(t, m.Restore(ctx, rec, "/home/u/a.txt"))
	data, err := afero.ReadFile(fsys, "/home/u/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestRestoreTombstoneRemovesTarget(t *testing.T) {
	m, fsys, _ := newManager(t, nil)

	rec, err := m.VersionedBackup(ctx, "/etc/new.conf")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, "/etc/new.conf", []byte("partial"), 0o644))

	require.NoError(t, m.Restore(ctx, rec, "/etc/new.conf"))
	exists, err := afero.Exists(fsys, "/etc/new.conf")
	require.NoError(t, err)
	assert.False(t, exists)

	// removing an already absent target is fine
	require.NoError(t, m.Restore(ctx, rec, "/etc/new.conf"))
}

func TestRestoreCorruptPayload(t *testing.T) {
	m, _, _ := newManager(t, map[string]string{"/etc/app.conf": "original"})

	rec, err := m.VersionedBackup(ctx, "/etc/app.conf")
	require.NoError(t, err)
	rec.Payload = []byte("tampered")

	err = m.Restore(ctx, rec, "/etc/app.conf")
	assert.ErrorIs(t, err, fserr.ErrRestoreFailed)
	assert.ErrorIs(t, err, ErrCorrupt)
}

type brokenInstaller struct{}

func (brokenInstaller) Install(context.Context, string, []byte, fs.FileMode) error {
	return errors.New("elevation denied")
}

func (brokenInstaller) Remove(context.Context, string) error {
	return errors.New("elevation denied")
}

func TestRestoreViaFailure(t *testing.T) {
	m, _, _ := newManager(t, map[string]string{"/etc/app.conf": "original"})
	rec, err := m.VersionedBackup(ctx, "/etc/app.conf")
	require.NoError(t, err)

	err = m.RestoreVia(ctx, rec, "/etc/app.conf", brokenInstaller{})
	assert.ErrorIs(t, err, fserr.ErrRestoreFailed)

	assert.ErrorIs(t, m.RestoreVia(ctx, nil, "/etc/app.conf", brokenInstaller{}), fserr.ErrRestoreFailed)
}
