//go:build !windows

package diskspace

import (
	"path/filepath"
	"syscall"
)

// availableSpace returns the bytes available to unprivileged users on the
// filesystem holding path. ok is false when the filesystem cannot be
// statted.
func availableSpace(path string) (int64, bool) {
	dir := filepath.Dir(path)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, false
	}

	return int64(stat.Bavail) * int64(stat.Bsize), true
}
