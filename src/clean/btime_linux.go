//go:build linux

package clean

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// createdAt prefers the statx birth time and falls back to mtime when the
// filesystem does not record it.
func createdAt(path string) (time.Time, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME|unix.STATX_MTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
	}
	info, statErr := os.Lstat(path)
	if statErr != nil {
		return time.Time{}, statErr
	}
	return info.ModTime(), nil
}
