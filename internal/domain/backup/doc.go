// Package backup snapshots files before they are mutated.
//
// A simple backup copies the current bytes to a timestamped sibling file and
// protects ordinary writes. A versioned backup records the bytes and their
// SHA-256 digest in a VersionStore ahead of privileged writes, and is the
// source for Restore when a privileged commit fails. Neither kind is ever
// deleted by this package.
package backup
