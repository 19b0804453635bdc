package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations prometheus.Counter
	CacheBypass        *prometheus.CounterVec
	CacheEntries       prometheus.Gauge

	// Watch metrics
	WatchEvents  *prometheus.CounterVec
	WatchedRoots prometheus.Gauge

	// Ledger metrics
	LedgerGlyphs *prometheus.CounterVec

	// Mutation metrics
	Backups *prometheus.CounterVec
	Writes  *prometheus.CounterVec

	// Search metrics
	SearchYields  prometheus.Counter
	SearchSkipped prometheus.Counter

	// Operation metrics
	OperationDuration *prometheus.HistogramVec
	AdminRequests     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the control plane metrics on reg. A nil reg
// uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "fsplane_cache_hits_total",
			Help: "Reads served from the cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "fsplane_cache_misses_total",
			Help: "Reads that went to disk",
		}),
		CacheInvalidations: f.NewCounter(prometheus.CounterOpts{
			Name: "fsplane_cache_invalidations_total",
			Help: "Cache entries dropped by writes or change events",
		}),
		CacheBypass: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_cache_bypass_total",
			Help: "Reads that were not cached",
		}, []string{"reason"}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "fsplane_cache_entries",
			Help: "Entries resident in the read cache",
		}),
		WatchEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_watch_events_total",
			Help: "Normalized change events",
		}, []string{"kind"}),
		WatchedRoots: f.NewGauge(prometheus.GaugeOpts{
			Name: "fsplane_watched_roots",
			Help: "Roots currently watched",
		}),
		LedgerGlyphs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_ledger_glyphs_total",
			Help: "Glyphs handed to the ledger by outcome",
		}, []string{"type", "outcome"}),
		Backups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_backups_total",
			Help: "Backups taken by kind and status",
		}, []string{"kind", "status"}),
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_writes_total",
			Help: "Writes by mode and status",
		}, []string{"mode", "status"}),
		SearchYields: f.NewCounter(prometheus.CounterOpts{
			Name: "fsplane_search_yields_total",
			Help: "Paths yielded by search",
		}),
		SearchSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "fsplane_search_skipped_dirs_total",
			Help: "Directories skipped during search because they could not be listed",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fsplane_operation_duration_seconds",
			Help:    "Facade operation duration",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation", "status"}),
		AdminRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fsplane_admin_requests_total",
			Help: "Admin HTTP requests",
		}, []string{"method", "path", "status"}),
		gatherer: reg,
	}
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordCacheHit records a read served from the cache
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss records a read that went to disk
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordCacheBypass records a read that skipped the cache
func (m *Metrics) RecordCacheBypass(reason string) {
	if m == nil {
		return
	}
	m.CacheBypass.WithLabelValues(reason).Inc()
}

// RecordInvalidations records dropped cache entries
func (m *Metrics) RecordInvalidations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheInvalidations.Add(float64(n))
}

// SetCacheEntries sets the resident entry gauge
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// RecordWatchEvent records a normalized change event
func (m *Metrics) RecordWatchEvent(kind string) {
	if m == nil {
		return
	}
	m.WatchEvents.WithLabelValues(kind).Inc()
}

// SetWatchedRoots sets the watched root gauge
func (m *Metrics) SetWatchedRoots(n int) {
	if m == nil {
		return
	}
	m.WatchedRoots.Set(float64(n))
}

// RecordGlyph records a ledger outcome: forwarded, dropped or failed
func (m *Metrics) RecordGlyph(glyphType, outcome string) {
	if m == nil {
		return
	}
	m.LedgerGlyphs.WithLabelValues(glyphType, outcome).Inc()
}

// RecordBackup records a backup attempt
func (m *Metrics) RecordBackup(kind, status string) {
	if m == nil {
		return
	}
	m.Backups.WithLabelValues(kind, status).Inc()
}

// RecordWrite records a write attempt
func (m *Metrics) RecordWrite(mode, status string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(mode, status).Inc()
}

// RecordSearchYield records one yielded search path
func (m *Metrics) RecordSearchYield() {
	if m == nil {
		return
	}
	m.SearchYields.Inc()
}

// RecordSearchSkip records a directory skipped during search
func (m *Metrics) RecordSearchSkip() {
	if m == nil {
		return
	}
	m.SearchSkipped.Inc()
}

// RecordOperation records a facade operation duration
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordAdminRequest records an admin HTTP request
func (m *Metrics) RecordAdminRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.AdminRequests.WithLabelValues(method, path, status).Inc()
}
