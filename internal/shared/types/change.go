package types

import "time"

// ChangeKind is the normalized kind of a filesystem change
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// ChangeRecord is one observed change under a watched root
type ChangeRecord struct {
	Kind       ChangeKind `json:"kind"`
	Path       string     `json:"path"`
	Root       string     `json:"root"`
	ObservedAt time.Time  `json:"observed_at"`
}
