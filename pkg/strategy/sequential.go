package strategy

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/fileops"
)

// Sequential walks the source tree depth first on the calling goroutine.
type Sequential struct{}

func (s *Sequential) Kind() Kind { return KindSequential }

// CancelWorker is a no-op: the sequential walk has no pool slots.
func (s *Sequential) CancelWorker(int) {}

func (s *Sequential) Execute(task backup.Task, log backup.Logger, dryRun bool) backup.Result {
	r := newRun(KindSequential, task, log, dryRun)
	if err := r.begin(); err != nil {
		return r.finish(err)
	}

	info, err := os.Stat(task.Source)
	if err != nil {
		return r.finish(backup.ErrSourceMissing)
	}

	err = s.walkDir(r, task.Source, task.Target, info)
	if err == nil && task.Mode == backup.ModeSync && !task.Aborted() {
		err = r.syncDelete(task.Source, task.Target)
	}
	return r.finish(err)
}

// walkDir handles one directory and everything below it. A non-nil error
// ends the whole walk.
func (s *Sequential) walkDir(r *run, src, dst string, info fs.FileInfo) error {
	verify := r.task.Mode == backup.ModeVerify
	if verify {
		if err := r.escalate(r.verifyDir(dst, walkVerifyMessages)); err != nil {
			return err
		}
	} else if err := r.ensureDir(src, dst, info); err != nil {
		return r.escalate(err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return r.escalate(r.fail(backup.KindReadDir, "  Read Error: ", src, err))
	}

	for _, e := range entries {
		if r.task.Aborted() {
			return nil
		}
		childSrc := filepath.Join(src, e.Name())
		childDst := filepath.Join(dst, e.Name())
		if r.excluded(childSrc) {
			continue
		}
		r.log.OnProgress(childSrc)

		childInfo, err := os.Lstat(childSrc)
		if err != nil {
			if err := r.escalate(r.fail(backup.KindReadDir, "  Read Error: ", childSrc, err)); err != nil {
				return err
			}
			continue
		}

		if childInfo.IsDir() {
			if err := s.walkDir(r, childSrc, childDst, childInfo); err != nil {
				return err
			}
			continue
		}

		var itemErr error
		if verify {
			itemErr = r.verifyEntry(-1, childSrc, childDst, childInfo, r.task.Aborted, walkVerifyMessages)
		} else {
			itemErr = r.copyEntry(-1, childSrc, childDst, childInfo, r.task.Aborted)
		}
		if err := r.escalate(itemErr); err != nil {
			return err
		}
	}

	// Children update the directory times, so they are restored last.
	if !verify && !r.dryRun && !r.task.Aborted() {
		if err := fileops.CopyTimes(src, dst); err != nil {
			return r.escalate(r.fail(backup.KindTimestampCopy, "  Timestamp Error: ", dst, err))
		}
	}
	return nil
}
