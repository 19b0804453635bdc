package search

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsplane/internal/shared/fserr"
)

var ctx = context.Background()

func tree(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, f := range files {
		if f[len(f)-1] == '/' {
			require.NoError(t, fsys.MkdirAll(f, 0o755))
			continue
		}
		require.NoError(t, afero.WriteFile(fsys, f, []byte("x"), 0o644))
	}
	return fsys
}

func collect(t *testing.T, e *Engine, root, pattern string, opts Options) []string {
	t.Helper()
	seq, err := e.Search(ctx, root, pattern, opts)
	require.NoError(t, err)
	return slices.Collect(seq)
}

var docs = []string{
	"/root/a.md",
	"/root/b.txt",
	"/root/docs/c.md",
	"/root/docs/deep/d.md",
	"/root/notes/e.md",
	"/root/z.md",
}

func TestSearchDepthFirstListingOrder(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)

	got := collect(t, e, "/root", "*.md", Options{})
	assert.Equal(t, []string{
		"/root/a.md",
		"/root/docs/c.md",
		"/root/docs/deep/d.md",
		"/root/notes/e.md",
		"/root/z.md",
	}, got)
}

func TestSearchMaxResults(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)

	got := collect(t, e, "/root", "*.md", Options{MaxResults: 3})
	assert.Equal(t, []string{"/root/a.md", "/root/docs/c.md", "/root/docs/deep/d.md"}, got)

	// restartable: a second range yields the same prefix
	assert.Equal(t, got, collect(t, e, "/root", "*.md", Options{MaxResults: 3}))
}

func TestSearchDefaultLimit(t *testing.T) {
	files := make([]string, 0, 10)
	for i := range 10 {
		files = append(files, filepath.Join("/root", string(rune('a'+i))+".log"))
	}
	e := NewEngine(tree(t, files...), 4, nil, nil)

	assert.Len(t, collect(t, e, "/root", "*.log", Options{}), 4)
	assert.Len(t, collect(t, e, "/root", "*.log", Options{MaxResults: 7}), 7)
}

func TestSearchShallow(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)

	got := collect(t, e, "/root", "*.md", Options{Shallow: true})
	assert.Equal(t, []string{"/root/a.md", "/root/z.md"}, got)
}

func TestMatchingDirectoryIsNotEntered(t *testing.T) {
	e := NewEngine(tree(t, "/root/build/", "/root/build/build", "/root/src/build"), 0, nil, nil)

	got := collect(t, e, "/root", "build", Options{})
	assert.Equal(t, []string{"/root/build", "/root/src/build"}, got)
}

func TestSearchStopsWhenConsumerStops(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)
	seq, err := e.Search(ctx, "/root", "*.md", Options{})
	require.NoError(t, err)

	var got []string
	for p := range seq {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestSearchHonorsCancellation(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)
	cctx, cancel := context.WithCancel(ctx)
	seq, err := e.Search(cctx, "/root", "*.md", Options{})
	require.NoError(t, err)

	var got []string
	for p := range seq {
		got = append(got, p)
		cancel()
	}
	assert.Len(t, got, 1)
}

func TestSearchStopsWhenCancelChannelCloses(t *testing.T) {
	e := NewEngine(tree(t, docs...), 0, nil, nil)
	stop := make(chan struct{})
	seq, err := e.Search(ctx, "/root", "*.md", Options{Cancel: stop})
	require.NoError(t, err)

	var got []string
	for p := range seq {
		got = append(got, p)
		if len(got) == 1 {
			close(stop)
		}
	}
	assert.Equal(t, []string{"/root/a.md"}, got)

	// a closed channel stops later ranges before they read anything
	assert.Empty(t, slices.Collect(seq))
}

func TestSearchErrors(t *testing.T) {
	e := NewEngine(tree(t, "/root/file"), 0, nil, nil)

	_, err := e.Search(ctx, "/root", "[", Options{})
	assert.ErrorIs(t, err, ErrBadPattern)

	_, err = e.Search(ctx, "/missing", "*", Options{})
	assert.ErrorIs(t, err, fserr.ErrNotFound)

	_, err = e.Search(ctx, "/root/file", "*", Options{})
	assert.ErrorIs(t, err, fserr.ErrIO)
}

func TestUnreadableDirectoryIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "hidden.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.md"), nil, 0o644))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	e := NewEngine(afero.NewOsFs(), 0, nil, nil)
	got := collect(t, e, root, "*.md", Options{})
	assert.Equal(t, []string{filepath.Join(root, "visible.md")}, got)
}
