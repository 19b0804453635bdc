package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/fsplane/internal/shared/id"
)

// Glyph types emitted by the control plane
const (
	TypeChange    = "fs.change"
	TypeBackup    = "fs.backup"
	TypeAccessLog = "fs.access_log"
)

// Glyph is one record handed to the ledger
type Glyph struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	District  string    `json:"district"`
	Timestamp time.Time `json:"timestamp"`
}

// NewGlyph stamps a glyph with a fresh ID
func NewGlyph(glyphType, district string, payload any, at time.Time) Glyph {
	return Glyph{
		ID:        id.NewGlyphID().String(),
		Type:      glyphType,
		Payload:   payload,
		District:  district,
		Timestamp: at,
	}
}

// Ledger persists glyphs
type Ledger interface {
	SaveGlyph(ctx context.Context, g Glyph) error
}

// Nop discards every glyph
type Nop struct{}

// SaveGlyph discards g
func (Nop) SaveGlyph(context.Context, Glyph) error { return nil }

// Memory keeps glyphs in process
type Memory struct {
	mu     sync.Mutex
	glyphs []Glyph
	err    error
}

// NewMemory creates an empty in-process ledger
func NewMemory() *Memory {
	return &Memory{}
}

// SaveGlyph appends g, or returns the injected failure
func (m *Memory) SaveGlyph(ctx context.Context, g Glyph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.glyphs = append(m.glyphs, g)
	return nil
}

// FailWith makes subsequent saves return err; nil clears it
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Glyphs returns a copy of every saved glyph in save order
func (m *Memory) Glyphs() []Glyph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Glyph(nil), m.glyphs...)
}

// ByType returns saved glyphs of one type
func (m *Memory) ByType(glyphType string) []Glyph {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Glyph
	for _, g := range m.glyphs {
		if g.Type == glyphType {
			out = append(out, g)
		}
	}
	return out
}
