// Package types provides shared data structures for the filesystem control plane.
//
// Core Types:
//   - VolumeRoot: A discovered volume or mount point
//   - FileRecord: A cached or freshly read file
//   - ChangeRecord: A normalized change notification
//   - BackupRecord: A simple or versioned backup
//   - AccessLogEntry: One audited operation
//
// Views:
//   - PermissionDescriptor: Decoded permission bits of a path
//   - Statistics: Point-in-time snapshot of control plane state
//
// Example Usage:
//
//	rec := &types.FileRecord{
//	    Path:    "/home/me/notes.md",
//	    Content: data,
//	    Size:    int64(len(data)),
//	}
//	text, err := rec.Decode(types.EncodingUTF8)
package types
