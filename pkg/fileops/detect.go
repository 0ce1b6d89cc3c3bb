package fileops

import (
	"errors"
	"os"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Reason explains the outcome of Check.
type Reason string

const (
	ReasonMissing   Reason = "target missing"
	ReasonSymlink   Reason = "symlink"
	ReasonDirectory Reason = "directory"
	ReasonSize      Reason = "size differs"
	ReasonNewer     Reason = "source newer"
	ReasonContent   Reason = "content differs"
	ReasonProbe     Reason = "probe failed"
	ReasonCancelled Reason = "cancelled"
	ReasonCurrent   Reason = "up to date"
)

// Check decides whether dst must be refreshed from src. Probe errors
// report an update so that a flaky stat never hides a stale file.
//
// The time criterion only fires when the source is strictly newer.
func Check(src, dst string, criteria backup.Criteria, cancel CancelCheck, progress ProgressFunc) (bool, Reason) {
	if _, err := os.Lstat(dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, ReasonMissing
		}
		return true, ReasonProbe
	}

	srcInfo, err := os.Lstat(src)
	if err != nil {
		return true, ReasonProbe
	}
	if srcInfo.Mode()&os.ModeSymlink != 0 {
		return true, ReasonSymlink
	}
	if srcInfo.IsDir() {
		return false, ReasonDirectory
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return true, ReasonProbe
	}

	if criteria.Size && srcInfo.Size() != dstInfo.Size() {
		return true, ReasonSize
	}
	if criteria.Time && srcInfo.ModTime().After(dstInfo.ModTime()) {
		return true, ReasonNewer
	}
	if criteria.Data {
		eq, err := Compare(src, dst, cancel, progress)
		switch {
		case backup.IsCancelled(err):
			return true, ReasonCancelled
		case err != nil:
			return true, ReasonProbe
		case !eq:
			return true, ReasonContent
		}
	}
	return false, ReasonCurrent
}

// NeedsUpdate is Check without the reason.
func NeedsUpdate(src, dst string, criteria backup.Criteria) bool {
	update, _ := Check(src, dst, criteria, nil, nil)
	return update
}

// SameLink reports whether two symlinks point at the same destination.
func SameLink(src, dst string) bool {
	a, err := os.Readlink(src)
	if err != nil {
		return false
	}
	b, err := os.Readlink(dst)
	if err != nil {
		return false
	}
	return a == b
}
