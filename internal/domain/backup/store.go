package backup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// ErrNotFound is returned by Get for unknown IDs
var ErrNotFound = errors.New("backup not found")

// VersionStore keeps versioned backup records
type VersionStore interface {
	Put(ctx context.Context, rec *types.BackupRecord) error
	Get(ctx context.Context, id string) (*types.BackupRecord, error)
	// History returns the records for path, oldest first
	History(ctx context.Context, path string) ([]*types.BackupRecord, error)
}

// MemoryStore is a VersionStore held in process
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*types.BackupRecord
	byPath map[string][]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*types.BackupRecord),
		byPath: make(map[string][]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, rec *types.BackupRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.ID]; !ok {
		key := filepath.Clean(rec.OriginalPath)
		s.byPath[key] = append(s.byPath[key], rec.ID)
	}
	s.byID[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.BackupRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) History(ctx context.Context, path string) ([]*types.BackupRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPath[filepath.Clean(path)]
	out := make([]*types.BackupRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneRecord(s.byID[id]))
	}
	return out, nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func cloneRecord(rec *types.BackupRecord) *types.BackupRecord {
	c := *rec
	if rec.Payload != nil {
		c.Payload = append([]byte(nil), rec.Payload...)
	}
	return &c
}
