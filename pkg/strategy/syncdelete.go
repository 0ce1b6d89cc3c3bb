package strategy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// syncDelete removes target entries that have no counterpart of the same
// name in the source. It runs single-threaded after the copy phase.
// Excluded source paths are never deleted from the target.
func (r *run) syncDelete(src, dst string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return r.escalate(r.fail(backup.KindReadDir, "  Read Error: ", dst, err))
	}

	for _, e := range entries {
		if r.task.Aborted() {
			return nil
		}
		target := filepath.Join(dst, e.Name())
		source := filepath.Join(src, e.Name())
		if r.excluded(source) {
			continue
		}

		_, err := os.Lstat(source)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := r.deleteEntry(target); err != nil {
				return err
			}
		case err != nil:
			// Cannot tell whether the source still has it; keep the target.
			continue
		case e.IsDir():
			if err := r.syncDelete(source, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) deleteEntry(target string) error {
	r.log.OnFileAction(backup.ActionDelete, r.display(target))
	if !r.dryRun {
		if err := os.RemoveAll(target); err != nil {
			return r.escalate(r.fail(backup.KindDelete, "  Delete Failed: ", target, err))
		}
	}
	r.incr(&r.result.Deleted)
	return nil
}
