package ledger

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/config"
)

// Open builds the sink named by cfg. The returned closer is never nil.
func Open(cfg config.LedgerConfig) (Ledger, io.Closer, error) {
	switch cfg.Sink {
	case config.SinkBadger:
		l, err := OpenBadger(cfg.Location)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case config.SinkFile:
		path := cfg.Location
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "glyphs.jsonl")
		}
		l, err := OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case config.SinkHTTP:
		l := NewHTTP(HTTPOptions{
			BaseURL: cfg.URL,
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		})
		return l, nopCloser{}, nil
	case config.SinkMemory:
		return NewMemory(), nopCloser{}, nil
	case config.SinkNop:
		return Nop{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger sink %q", cfg.Sink)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
