package cache

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt uses the inode change time; Linux stat does not expose birth time
func createdAt(info fs.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return info.ModTime()
}
