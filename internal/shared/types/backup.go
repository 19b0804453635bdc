package types

import (
	"io/fs"
	"time"
)

// BackupKind is either a sibling copy or a content-addressed version
type BackupKind string

const (
	BackupSimple    BackupKind = "simple"
	BackupVersioned BackupKind = "versioned"
)

// BackupRecord describes a backup taken before a mutating action.
// Versioned records carry the payload; simple records point at the copy.
type BackupRecord struct {
	ID           string      `json:"id"`
	Kind         BackupKind  `json:"kind"`
	OriginalPath string      `json:"original_path"`
	BackupPath   string      `json:"backup_path,omitempty"`
	ContentHash  string      `json:"content_hash,omitempty"`
	Payload      []byte      `json:"payload,omitempty"`
	Size         int64       `json:"size"`
	Mode         fs.FileMode `json:"mode"`
	Existed      bool        `json:"existed"`
	CreatedAt    time.Time   `json:"created_at"`
}
