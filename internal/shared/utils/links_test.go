package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestResolveLinks(t *testing.T) {
	dir := tempDir(t)
	real := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf"), 0o755))

	require.NoError(t, os.Symlink("real.txt", filepath.Join(dir, "rel")))
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "abs")))
	require.NoError(t, os.Symlink("rel", filepath.Join(dir, "chain")))
	require.NoError(t, os.Symlink("conf", filepath.Join(dir, "confdir")))
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(dir, "dangling")))

	fsys := afero.NewOsFs()
	tests := []struct {
		in   string
		want string
	}{
		{real, real},
		{filepath.Join(dir, "rel"), real},
		{filepath.Join(dir, "abs"), real},
		{filepath.Join(dir, "chain"), real},
		{filepath.Join(dir, "confdir", "app.toml"), filepath.Join(dir, "conf", "app.toml")},
		{filepath.Join(dir, "dangling"), filepath.Join(dir, "missing.txt")},
		{filepath.Join(dir, "new", "file"), filepath.Join(dir, "new", "file")},
	}
	for _, tt := range tests {
		got, err := ResolveLinks(fsys, tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolveLinksLoop(t *testing.T) {
	dir := tempDir(t)
	require.NoError(t, os.Symlink("b", filepath.Join(dir, "a")))
	require.NoError(t, os.Symlink("a", filepath.Join(dir, "b")))

	_, err := ResolveLinks(afero.NewOsFs(), filepath.Join(dir, "a"))
	assert.ErrorIs(t, err, ErrTooManyLinks)
}

func TestResolveLinksWithoutSymlinkSupport(t *testing.T) {
	got, err := ResolveLinks(afero.NewMemMapFs(), "/etc//app.conf")
	require.NoError(t, err)
	assert.Equal(t, "/etc/app.conf", got)
}
