// Package config provides layered configuration for the control plane.
//
// Precedence, lowest first:
//   - Default(): platform defaults (home directory, critical roots, protected prefixes)
//   - Config file: YAML (.yaml, .yml) or TOML (.toml), when a path is given
//   - Environment: FSPLANE_* variables
//
// Configuration Sections:
//   - Server: Local admin listener
//   - Logging: Log level and output format
//   - Host: Home directory, watched roots, protected prefixes, default actor
//   - Cache: Size threshold and entry bound of the read cache
//   - AccessLog: Ring size of the access log
//   - Watch: Ignore globs for change notification
//   - Backup: Version store location
//   - Elevation: Privileged execution method and staging directory
//   - Ledger: Sink, district and forwarding limits
//   - Search: Default result bound
//
// Example Usage:
//
//	cfg, err := config.Load("/etc/fsplane.yaml")
//	if err != nil {
//	    return err
//	}
//
// Environment Variables:
//   - FSPLANE_ADMIN_ADDR, FSPLANE_ADMIN_ENABLED
//   - FSPLANE_LOG_LEVEL, FSPLANE_LOG_DEV
//   - FSPLANE_HOME, FSPLANE_CRITICAL_PATHS, FSPLANE_PROTECTED_PREFIXES, FSPLANE_ACTOR
//   - FSPLANE_CACHE_THRESHOLD, FSPLANE_CACHE_MAX_ENTRIES
//   - FSPLANE_ACCESS_LOG_SIZE
//   - FSPLANE_WATCH_ENABLED, FSPLANE_WATCH_IGNORE
//   - FSPLANE_BACKUP_DIR, FSPLANE_BACKUP_COMPRESS
//   - FSPLANE_ELEVATION_METHOD, FSPLANE_STAGING_DIR
//   - FSPLANE_LEDGER_SINK, FSPLANE_LEDGER_LOCATION, FSPLANE_LEDGER_URL,
//     FSPLANE_LEDGER_DISTRICT, FSPLANE_LEDGER_RATE, FSPLANE_LEDGER_BURST,
//     FSPLANE_LEDGER_QUEUE, FSPLANE_LEDGER_TIMEOUT_MS
//   - FSPLANE_SEARCH_MAX_RESULTS
package config
