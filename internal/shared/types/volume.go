package types

// VolumeKind distinguishes drive-letter roots from mount points
type VolumeKind string

const (
	VolumeDrive VolumeKind = "drive"
	VolumeMount VolumeKind = "mount"
)

// VolumeRoot is a top-level entry point into the filesystem
type VolumeRoot struct {
	Path       string     `json:"path"`
	Kind       VolumeKind `json:"kind"`
	Reachable  bool       `json:"reachable"`
	Device     string     `json:"device,omitempty"`
	FSType     string     `json:"fs_type,omitempty"`
	TotalBytes uint64     `json:"total_bytes,omitempty"`
	FreeBytes  uint64     `json:"free_bytes,omitempty"`
}
