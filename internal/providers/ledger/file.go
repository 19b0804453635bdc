package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// FileLedger appends glyphs as JSON lines
type FileLedger struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFile opens or creates the JSONL file at path
func OpenFile(path string) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger.OpenFile: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger.OpenFile: %w", err)
	}
	return &FileLedger{file: f}, nil
}

// SaveGlyph writes g as one line
func (l *FileLedger) SaveGlyph(ctx context.Context, g Glyph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.Marshal(g)
	if err != nil {
		return fmt.Errorf("ledger.FileLedger: marshal: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("ledger.FileLedger: %w", err)
	}
	return nil
}

// Close syncs and closes the file
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
