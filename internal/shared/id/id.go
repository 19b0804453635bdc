// Package id provides ULID generation for backups, glyphs and versions.
//
// IDs are lexicographically sortable and monotonic within a process, so
// storage keys built from them iterate in creation order. Every kind of
// record carries a short prefix to keep logs readable:
//   - bak_*: backup records
//   - gly_*: ledger glyphs
//   - ver_*: version store entries
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// BackupID identifies a backup record
type BackupID string

// GlyphID identifies a ledger glyph
type GlyphID string

const (
	BackupPrefix = "bak"
	GlyphPrefix  = "gly"
)

// Generator generates monotonic ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID, strictly greater than the previous one
// when generated within the same millisecond
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewBackupID generates a new backup ID
func NewBackupID() BackupID {
	return BackupID(Default().GenerateWithPrefix(BackupPrefix))
}

// NewGlyphID generates a new glyph ID
func NewGlyphID() GlyphID {
	return GlyphID(Default().GenerateWithPrefix(GlyphPrefix))
}

func (id BackupID) String() string { return string(id) }
func (id GlyphID) String() string  { return string(id) }

// IsValid checks if a bare or prefixed ID holds a valid ULID
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// Parse parses a bare or prefixed ULID string
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the creation time from an ID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
