package controlplane

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/domain/accesslog"
	"github.com/GriffinCanCode/fsplane/internal/domain/backup"
	"github.com/GriffinCanCode/fsplane/internal/domain/cache"
	"github.com/GriffinCanCode/fsplane/internal/domain/privileged"
	"github.com/GriffinCanCode/fsplane/internal/domain/search"
	"github.com/GriffinCanCode/fsplane/internal/domain/volume"
	"github.com/GriffinCanCode/fsplane/internal/domain/watcher"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/providers/elevation"
	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// State is the lifecycle state of a Plane
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady           = errors.New("control plane is not initialized")
	ErrStopped            = errors.New("control plane is stopped")
	ErrAlreadyInitialized = errors.New("control plane is already initialized")
)

// Options wires a Plane. Only Config is required; every collaborator left
// nil gets a default built from it.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	Fs       afero.Fs
	Ledger   ledger.Ledger
	Store    backup.VersionStore
	Elevator elevation.Elevator
	Volumes  *volume.Enumerator
	Now      func() time.Time
	// Closers are closed last during Shutdown, in order
	Closers []io.Closer
}

// Plane is the filesystem control plane facade
type Plane struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	fs           afero.Fs
	now          func() time.Time
	defaultActor string

	ledger   ledger.Ledger
	store    backup.VersionStore
	elevator elevation.Elevator
	closers  []io.Closer

	cache   *cache.Cache
	log     *accesslog.Log
	volumes *volume.Enumerator
	search  *search.Engine

	// built by Initialize
	forwarder *ledger.Forwarder
	watchers  *watcher.Registry
	backups   *backup.Manager
	writer    *privileged.Writer

	mu       sync.RWMutex
	state    State
	// closed when shutdown begins; stops searches still being ranged
	stopping chan struct{}
	roots    []types.VolumeRoot
	inflight sync.WaitGroup
}

// New builds an uninitialized Plane
func New(opts Options) (*Plane, error) {
	if opts.Config == nil {
		return nil, errors.New("controlplane.New: config is required")
	}
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.Nop{}
	}
	if opts.Store == nil {
		opts.Store = backup.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Elevator == nil {
		runner, err := elevation.NewRunner(cfg.Elevation.Method, opts.Logger.Named("elevation"))
		if err != nil {
			return nil, fmt.Errorf("controlplane.New: %w", err)
		}
		opts.Elevator = runner
	}
	if opts.Volumes == nil {
		opts.Volumes = volume.New(opts.Logger.Named("volume"))
	}

	logger := opts.Logger
	return &Plane{
		cfg:          cfg,
		logger:       logger,
		metrics:      opts.Metrics,
		fs:           opts.Fs,
		now:          opts.Now,
		defaultActor: defaultActor(cfg.Host.Actor),
		ledger:       opts.Ledger,
		store:        opts.Store,
		elevator:     opts.Elevator,
		closers:      opts.Closers,
		cache: cache.New(cache.Options{
			Fs:         opts.Fs,
			Threshold:  cfg.Cache.ThresholdBytes,
			MaxEntries: cfg.Cache.MaxEntries,
			Logger:     logger.Named("cache"),
			Metrics:    opts.Metrics,
		}),
		log:      accesslog.New(cfg.AccessLog.Size, accesslog.WithClock(opts.Now)),
		volumes:  opts.Volumes,
		search:   search.NewEngine(opts.Fs, cfg.Search.DefaultMaxResults, logger.Named("search"), opts.Metrics),
		stopping: make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state
func (p *Plane) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Initialize starts the plane
func (p *Plane) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateReady:
		return ErrAlreadyInitialized
	case StateShuttingDown, StateStopped:
		return ErrStopped
	}

	p.forwarder = ledger.NewForwarder(p.ledger, ledger.ForwarderOptions{
		District:  p.cfg.Ledger.District,
		QueueSize: p.cfg.Ledger.QueueSize,
		Rate:      p.cfg.Ledger.Rate,
		Burst:     p.cfg.Ledger.Burst,
		Timeout:   time.Duration(p.cfg.Ledger.TimeoutMS) * time.Millisecond,
		Logger:    p.logger.Named("ledger"),
		Metrics:   p.metrics,
		Now:       p.now,
	})
	p.backups = backup.NewManager(backup.Options{
		Fs:      p.fs,
		Store:   p.store,
		Sink:    p.forwarder,
		Logger:  p.logger.Named("backup"),
		Metrics: p.metrics,
		Now:     p.now,
	})
	p.writer = privileged.NewWriter(privileged.Options{
		Backups:    p.backups,
		Elevator:   p.elevator,
		Cache:      p.cache,
		StagingDir: p.cfg.Elevation.StagingDir,
		Logger:     p.logger.Named("privileged"),
		Metrics:    p.metrics,
	})

	p.roots = p.volumes.List(ctx)

	p.watchers = watcher.NewRegistry(p.cache, p.forwarder, watcher.Options{
		Ignore:  p.cfg.Watch.Ignore,
		Logger:  p.logger.Named("watcher"),
		Metrics: p.metrics,
		Now:     p.now,
	})
	var watched []string
	if p.cfg.Watch.Enabled {
		watched = p.watchers.WatchAll(p.cfg.Host.CriticalPaths)
	}

	p.state = StateReady
	p.logger.Info("Control plane ready",
		zap.Int("volumes", len(p.roots)),
		zap.Strings("watched_roots", watched),
		zap.String("actor", p.defaultActor),
	)
	return nil
}

// Shutdown stops the plane. Failures in individual steps do not prevent
// later steps and are joined into the returned error.
func (p *Plane) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateUninitialized:
		p.mu.Unlock()
		return ErrNotReady
	case StateShuttingDown, StateStopped:
		p.mu.Unlock()
		return ErrStopped
	}
	p.state = StateShuttingDown
	close(p.stopping)
	p.mu.Unlock()

	p.logger.Info("Control plane shutting down")
	var errs []error

	if err := p.waitInflight(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for operations: %w", err))
	}
	if err := p.watchers.CloseAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing watchers: %w", err))
	}
	if err := p.forwarder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("draining ledger queue: %w", err))
	}
	p.cache.Clear()
	if err := p.flushAccessLog(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing access log: %w", err))
	}
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		p.logger.Warn("Control plane stopped with errors", zap.Error(err))
	} else {
		p.logger.Info("Control plane stopped")
	}
	return err
}

func (p *Plane) waitInflight(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flushAccessLog saves the whole log as one glyph, synchronously
func (p *Plane) flushAccessLog(ctx context.Context) error {
	entries := p.log.Drain()
	g := ledger.NewGlyph(ledger.TypeAccessLog, p.cfg.Ledger.District, entries, p.now())
	err := p.ledger.SaveGlyph(ctx, g)
	if err != nil {
		p.metrics.RecordGlyph(g.Type, "failed")
		return err
	}
	p.metrics.RecordGlyph(g.Type, "forwarded")
	return nil
}

// enter admits an operation while Ready; pair with leave
func (p *Plane) enter() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case StateReady:
		p.inflight.Add(1)
		return nil
	case StateUninitialized:
		return ErrNotReady
	default:
		return ErrStopped
	}
}

func (p *Plane) leave() {
	p.inflight.Done()
}
