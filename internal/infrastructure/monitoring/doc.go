/*
Package monitoring provides Prometheus metrics for the control plane.

# Overview

Metrics are registered on an explicit prometheus.Registerer so that tests
and embedders can use private registries. Every Record method is safe to
call on a nil *Metrics, which records nothing.

# Families

- fsplane_cache_*: hits, misses, invalidations, resident entries
- fsplane_watch_*: events by kind, watched roots
- fsplane_ledger_*: forwarded, dropped and failed glyphs
- fsplane_backups_total, fsplane_writes_total: mutating operations by outcome
- fsplane_search_*: yielded paths, skipped directories
- fsplane_operation_duration_seconds: facade operations by name and status
- fsplane_admin_requests_total: admin HTTP requests

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
