package elevation

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunnerRejectsUnknownMethod(t *testing.T) {
	_, err := NewRunner("su", nil)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestWrap(t *testing.T) {
	cmd := Command{Name: "cp", Args: []string{"--", "a", "b"}}

	tests := []struct {
		method string
		want   []string
	}{
		{"sudo", []string{"sudo", "-n", "--", "cp", "--", "a", "b"}},
		{"doas", []string{"doas", "-n", "cp", "--", "a", "b"}},
		{"pkexec", []string{"pkexec", "cp", "--", "a", "b"}},
		{"none", []string{"cp", "--", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r, err := NewRunner(tt.method, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Wrap(cmd))
		})
	}
	assert.Equal(t, "cp -- a b", cmd.String())
}

func TestRunElevatedDirect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix tools")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	r, err := NewRunner("none", nil)
	require.NoError(t, err)

	res, err := r.RunElevated(context.Background(), Command{Name: "cp", Args: []string{"--", src, dst}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRunElevatedCapturesFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix tools")
	}
	r, err := NewRunner("none", nil)
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "missing")
	res, err := r.RunElevated(context.Background(), Command{Name: "cp", Args: []string{"--", missing, missing + ".copy"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.NotEmpty(t, res.Stderr)
}

func TestRunElevatedMissingTool(t *testing.T) {
	r, err := NewRunner("none", nil)
	require.NoError(t, err)

	_, err = r.RunElevated(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
}
