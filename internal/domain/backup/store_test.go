package backup

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsplane/internal/shared/id"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

func sampleRecord(path string, payload []byte) *types.BackupRecord {
	return &types.BackupRecord{
		ID:           id.NewBackupID().String(),
		Kind:         types.BackupVersioned,
		OriginalPath: path,
		Payload:      payload,
		Size:         int64(len(payload)),
		Mode:         0o644,
		Existed:      true,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func storeContract(t *testing.T, store VersionStore) {
	t.Helper()

	first := sampleRecord("/etc/hosts", bytes.Repeat([]byte("abc"), 1000))
	second := sampleRecord("/etc/hosts", []byte("short"))
	other := sampleRecord("/etc/fstab", nil)

	for _, rec := range []*types.BackupRecord{first, second, other} {
		require.NoError(t, store.Put(ctx, rec))
	}

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Payload, got.Payload)
	assert.Equal(t, first.OriginalPath, got.OriginalPath)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	history, err := store.History(ctx, "/etc/hosts")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)

	history, err = store.History(ctx, "/etc/missing")
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = store.Get(ctx, "bak_unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store)
	assert.Equal(t, 3, store.Len())
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	rec := sampleRecord("/a", []byte("abc"))
	require.NoError(t, store.Put(ctx, rec))
	rec.Payload[0] = 'x'

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got.Payload))
}

func TestBadgerStore(t *testing.T) {
	for _, compress := range []bool{true, false} {
		t.Run(map[bool]string{true: "zstd", false: "plain"}[compress], func(t *testing.T) {
			store, err := OpenBadgerStore("", compress)
			require.NoError(t, err)
			defer store.Close()
			storeContract(t, store)
		})
	}
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenBadgerStore(dir, true)
	require.NoError(t, err)
	rec := sampleRecord("/etc/hosts", []byte("persisted"))
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Close())

	store, err = OpenBadgerStore(dir, true)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got.Payload))
}
