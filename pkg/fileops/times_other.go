//go:build !linux

package fileops

import (
	"os"
	"time"
)

func statTimes(path string) (atime, mtime time.Time, err error) {
	info, err := os.Lstat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return info.ModTime(), info.ModTime(), nil
}

// Symlink times are left alone here; os.Chtimes would follow the link.
func setTimes(path string, atime, mtime time.Time) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	return os.Chtimes(path, atime, mtime)
}
