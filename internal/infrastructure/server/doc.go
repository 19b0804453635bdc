// Package server exposes a read-only admin HTTP surface for the control plane.
//
// Routes:
//   - GET /health: lifecycle state
//   - GET /stats: statistics snapshot
//   - GET /volumes: enumerated volume roots
//   - GET /watched: watched roots
//   - GET /access-log?limit=N: recent access entries, oldest first
//   - GET /metrics: Prometheus exposition
//
// The listener binds to loopback by default. Browsers on loopback origins
// may call it; other origins need to be listed in the config.
//
// Middleware stack, outermost first: recovery, request metrics, request
// logging, CORS, per-client rate limiting.
package server
