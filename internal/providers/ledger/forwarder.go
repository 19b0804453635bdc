package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// ForwarderOptions configures a Forwarder
type ForwarderOptions struct {
	District  string
	QueueSize int
	Rate      float64
	Burst     int
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
	Now       func() time.Time
}

// Forwarder delivers glyphs to a ledger in the background
type Forwarder struct {
	ledger   Ledger
	district string
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Glyph

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewForwarder starts a forwarder worker
func NewForwarder(l Ledger, opts ForwarderOptions) *Forwarder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Rate <= 0 {
		opts.Rate = 200
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	f := &Forwarder{
		ledger:   l,
		district: opts.District,
		timeout:  opts.Timeout,
		limiter:  rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		breaker: resilience.New("ledger", resilience.Settings{
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("Ledger circuit changed state",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
		logger:  logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		queue:   make(chan Glyph, opts.QueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

// Forward enqueues a change record without blocking
func (f *Forwarder) Forward(rec types.ChangeRecord) {
	f.Submit(NewGlyph(TypeChange, f.district, rec, rec.ObservedAt))
}

// Submit enqueues g and reports whether it was accepted
func (f *Forwarder) Submit(g Glyph) bool {
	if g.District == "" {
		g.District = f.district
	}
	if g.Timestamp.IsZero() {
		g.Timestamp = f.now()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.metrics.RecordGlyph(g.Type, "dropped")
		return false
	}

	select {
	case f.queue <- g:
		return true
	default:
		f.metrics.RecordGlyph(g.Type, "dropped")
		f.logger.Warn("Ledger queue full, dropping glyph",
			zap.String("type", g.Type),
			zap.String("id", g.ID),
		)
		return false
	}
}

// Pending returns the number of queued glyphs
func (f *Forwarder) Pending() int {
	return len(f.queue)
}

// Close stops accepting glyphs and drains the queue. When ctx expires
// first, the remaining glyphs are dropped.
func (f *Forwarder) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		f.stopOnce.Do(func() { close(f.stop) })
		<-f.done
		return ctx.Err()
	}
}

func (f *Forwarder) run() {
	defer close(f.done)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-f.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	for g := range f.queue {
		if err := f.limiter.Wait(runCtx); err != nil {
			f.metrics.RecordGlyph(g.Type, "dropped")
			continue
		}
		f.deliver(runCtx, g)
	}
}

func (f *Forwarder) deliver(ctx context.Context, g Glyph) {
	err := f.breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return f.ledger.SaveGlyph(cctx, g)
	})
	if err != nil {
		f.metrics.RecordGlyph(g.Type, "failed")
		f.logger.Warn("Failed to forward glyph",
			zap.String("type", g.Type),
			zap.String("id", g.ID),
			zap.Error(err),
		)
		return
	}
	f.metrics.RecordGlyph(g.Type, "forwarded")
}
