//go:build !linux

package clean

import (
	"os"
	"time"
)

func createdAt(path string) (time.Time, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
