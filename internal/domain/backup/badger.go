package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

const (
	recordPrefix = "backup/id/"
	pathPrefix   = "backup/path/"

	codecNone = ""
	codecZstd = "zstd"
)

// storedRecord is the badger value; the payload may be compressed
type storedRecord struct {
	Record types.BackupRecord `json:"record"`
	Codec  string             `json:"codec,omitempty"`
}

// BadgerStore persists versioned backups in a badger database.
// Records are keyed by ID; a per-path index keeps history in ID order,
// which is creation order for ULIDs.
type BadgerStore struct {
	db       *badger.DB
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// OpenBadgerStore opens the store in dir; an empty dir opens in memory
func OpenBadgerStore(dir string, compress bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("backup.OpenBadgerStore: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("backup.OpenBadgerStore: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("backup.OpenBadgerStore: zstd reader: %w", err)
	}
	return &BadgerStore{db: db, compress: compress, enc: enc, dec: dec}, nil
}

func indexKey(path, id string) []byte {
	return []byte(pathPrefix + filepath.Clean(path) + "\x00" + id)
}

func (s *BadgerStore) Put(ctx context.Context, rec *types.BackupRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := storedRecord{Record: *rec}
	if s.compress && len(rec.Payload) > 0 {
		stored.Record.Payload = s.enc.EncodeAll(rec.Payload, nil)
		stored.Codec = codecZstd
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("backup.BadgerStore: marshal %s: %w", rec.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(recordPrefix+rec.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(rec.OriginalPath, rec.ID), []byte(rec.ID))
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*types.BackupRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *types.BackupRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = s.load(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BadgerStore) History(ctx context.Context, path string) ([]*types.BackupRecord, error) {
	var out []*types.BackupRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pathPrefix + filepath.Clean(path) + "\x00")
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(v))
		}

		for _, id := range ids {
			rec, err := s.load(txn, id)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) load(txn *badger.Txn, id string) (*types.BackupRecord, error) {
	item, err := txn.Get([]byte(recordPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	var stored storedRecord
	if err := sonic.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("backup.BadgerStore: decode %s: %w", id, err)
	}
	rec := stored.Record
	switch stored.Codec {
	case codecNone:
	case codecZstd:
		payload, err := s.dec.DecodeAll(rec.Payload, nil)
		if err != nil {
			return nil, fmt.Errorf("backup.BadgerStore: decompress %s: %w", id, err)
		}
		rec.Payload = payload
	default:
		return nil, fmt.Errorf("backup.BadgerStore: unknown codec %q for %s", stored.Codec, id)
	}
	return &rec, nil
}

// Close releases the codecs and closes the database
func (s *BadgerStore) Close() error {
	s.dec.Close()
	return errors.Join(s.enc.Close(), s.db.Close())
}
