package types

import (
	"fmt"
	"io/fs"
	"time"
)

// Operation is an audited action
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpSearch Operation = "search"
)

// Valid reports whether op is one of the audited operations
func (op Operation) Valid() bool {
	switch op {
	case OpRead, OpWrite, OpSearch:
		return true
	}
	return false
}

// AccessLogEntry is immutable once appended
type AccessLogEntry struct {
	Operation Operation `json:"operation"`
	Path      string    `json:"path"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// Triplet is the rwx set for one permission class
type Triplet struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Execute bool `json:"execute"`
}

func (t Triplet) String() string {
	b := []byte("---")
	if t.Read {
		b[0] = 'r'
	}
	if t.Write {
		b[1] = 'w'
	}
	if t.Execute {
		b[2] = 'x'
	}
	return string(b)
}

// PermissionDescriptor is the decoded view of a path's permission bits
type PermissionDescriptor struct {
	Path        string  `json:"path"`
	NumericMode string  `json:"numeric_mode"`
	Owner       Triplet `json:"owner"`
	Group       Triplet `json:"group"`
	Others      Triplet `json:"others"`
	IsDirectory bool    `json:"is_directory"`
}

// DescribePermissions decodes the permission bits of mode
func DescribePermissions(path string, mode fs.FileMode) PermissionDescriptor {
	perm := mode.Perm()
	triplet := func(shift uint) Triplet {
		bits := uint32(perm) >> shift
		return Triplet{Read: bits&4 != 0, Write: bits&2 != 0, Execute: bits&1 != 0}
	}
	return PermissionDescriptor{
		Path:        path,
		NumericMode: fmt.Sprintf("%04o", uint32(perm)),
		Owner:       triplet(6),
		Group:       triplet(3),
		Others:      triplet(0),
		IsDirectory: mode.IsDir(),
	}
}

// Statistics is a snapshot of control plane state
type Statistics struct {
	WatchedRootCount  int             `json:"watched_root_count"`
	CachedEntryCount  int             `json:"cached_entry_count"`
	RecentAccessCount int             `json:"recent_access_count"`
	LastAccess        *AccessLogEntry `json:"last_access,omitempty"`
}
