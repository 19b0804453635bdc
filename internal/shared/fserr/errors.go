// Package fserr defines the error kinds surfaced by control plane operations.
//
// Every failure returned across a component boundary carries exactly one kind:
//   - ErrNotFound: the path does not exist
//   - ErrPermissionDenied: the caller may not access the path
//   - ErrIO: any other filesystem or storage failure
//   - ErrElevationFailed: a privileged commit failed and the original was restored
//   - ErrRestoreFailed: a privileged commit failed and so did the restore
//
// Kinds are matched with errors.Is; the underlying cause stays reachable too.
package fserr

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIO               = errors.New("i/o error")
	ErrElevationFailed  = errors.New("elevation failed")
	ErrRestoreFailed    = errors.New("restore failed")
)

// PathError records a failed operation on a path together with its kind.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds a PathError of an explicit kind.
func New(kind error, op, path string, err error) error {
	return &PathError{Op: op, Path: path, Kind: kind, Err: err}
}

// Classify wraps err with the kind implied by its cause. Errors that already
// carry a kind keep it; nil stays nil.
func Classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Path: path, Kind: kindFor(err), Err: err}
}

// KindOf returns the kind sentinel carried by err, or nil when err has none.
func KindOf(err error) error {
	for _, kind := range []error{ErrRestoreFailed, ErrElevationFailed, ErrNotFound, ErrPermissionDenied, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a short label for logs and metrics.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrNotFound:
		return "not_found"
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrIO:
		return "io"
	case ErrElevationFailed:
		return "elevation_failed"
	case ErrRestoreFailed:
		return "restore_failed"
	default:
		return "unknown"
	}
}

func kindFor(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	default:
		return ErrIO
	}
}
