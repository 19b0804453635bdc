package watcher

import (
	"github.com/fsnotify/fsnotify"

	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// Normalize maps a notification op onto a change kind. Removal outranks
// rename, rename outranks creation, and anything unrecognized is a
// modification.
func Normalize(op fsnotify.Op) types.ChangeKind {
	switch {
	case op.Has(fsnotify.Remove):
		return types.ChangeDeleted
	case op.Has(fsnotify.Rename):
		return types.ChangeRenamed
	case op.Has(fsnotify.Create):
		return types.ChangeCreated
	default:
		return types.ChangeModified
	}
}
