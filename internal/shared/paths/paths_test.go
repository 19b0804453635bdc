package paths

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	home := t.TempDir()

	p, err := Normalize("~/notes/../notes.md", home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes.md"), p)

	p, err = Normalize("~", home)
	require.NoError(t, err)
	assert.Equal(t, home, p)

	_, err = Normalize("", home)
	assert.Error(t, err)

	p, err = Normalize("relative.txt", home)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p))
}

func TestIsUnder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	assert.True(t, IsUnder("/etc/hosts", "/etc"))
	assert.True(t, IsUnder("/etc", "/etc"))
	assert.False(t, IsUnder("/etcetera", "/etc"))
	assert.False(t, IsUnder("/home/me", "/etc"))
}

func TestCriticalRoots(t *testing.T) {
	linux := CriticalRoots("linux", "/home/me")
	assert.Equal(t, []string{"/home/me", "/home/me/.config", "/etc"}, linux)

	darwin := CriticalRoots("darwin", "/Users/me")
	assert.Contains(t, darwin, "/Library/Preferences")
	assert.Equal(t, "/Users/me", darwin[0])
}

func TestSimpleBackupPath(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 5, 123, time.UTC)
	got := SimpleBackupPath("/tmp/a.txt", at)
	assert.Equal(t, "/tmp/a.txt.backup-20240301T123005.000000123Z", got)
}

func TestPartialPath(t *testing.T) {
	got := PartialPath(filepath.Join("dir", "hosts"), "abc")
	assert.Equal(t, filepath.Join("dir", ".hosts.partial-abc"), got)
	assert.True(t, strings.HasPrefix(filepath.Base(got), "."))
}
