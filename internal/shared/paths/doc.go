// Package paths provides the host path layout used by the control plane.
//
// # Normalization
//
// Every component keys state by absolute, cleaned paths. Normalize expands
// a leading "~" and resolves relative paths against the working directory.
//
// # Host Layout
//
// CriticalRoots and ProtectedPrefixes describe the per-platform directories
// that are watched at startup and that require elevated writes:
//
//	linux:   ~, ~/.config, /etc
//	darwin:  ~, ~/Library/Preferences, /etc, /Library/Preferences
//	windows: ~, %APPDATA%, %SystemRoot%\System32\drivers\etc
//
// # Usage
//
//	p, err := paths.Normalize("~/notes.md", home)
//	if paths.IsUnder(p, "/etc") {
//	    // route through the privileged writer
//	}
package paths
