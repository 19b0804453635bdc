package ledger

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
)

const glyphKeyPrefix = "glyph/"

// BadgerLedger stores glyphs in a local badger database
type BadgerLedger struct {
	db *badger.DB
}

// OpenBadger opens the database in dir; an empty dir opens in memory
func OpenBadger(dir string) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger.OpenBadger: %w", err)
	}
	return &BadgerLedger{db: db}, nil
}

// SaveGlyph stores g under its ID
func (l *BadgerLedger) SaveGlyph(ctx context.Context, g Glyph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.Marshal(g)
	if err != nil {
		return fmt.Errorf("ledger.BadgerLedger: marshal: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(glyphKeyPrefix+g.ID), data)
	})
}

// Scan visits stored glyphs in ID order until fn returns false
func (l *BadgerLedger) Scan(ctx context.Context, fn func(Glyph) bool) error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(glyphKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var g Glyph
			if err := sonic.Unmarshal(data, &g); err != nil {
				return fmt.Errorf("ledger.BadgerLedger: decode %s: %w", it.Item().Key(), err)
			}
			if !fn(g) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the database
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
