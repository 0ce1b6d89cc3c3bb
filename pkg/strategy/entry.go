package strategy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/fileops"
)

// copyEntry brings one symlink or regular file up to date. worker is the
// pool slot, or -1 on the sequential path. The returned error is a per-item
// failure the caller may escalate; cancellations return nil.
func (r *run) copyEntry(worker int, src, dst string, info fs.FileInfo, cancel fileops.CancelCheck) error {
	name := filepath.Base(src)
	isLink := info.Mode()&os.ModeSymlink != 0

	action, kind, prefix, counter := backup.ActionCopy, backup.KindCopy, "  Copy Error: ", &r.result.Copied
	var size int64
	if isLink {
		action, kind, prefix, counter = backup.ActionLink, backup.KindLink, "  Link Error: ", &r.result.Linked
	} else {
		size = info.Size()
	}

	status := r.newTracker(worker, src, false)
	update, reason := fileops.Check(src, dst, r.task.Criteria, cancel, status.report)
	if reason == fileops.ReasonCancelled {
		return r.cancelled(worker)
	}
	if !update {
		r.incr(&r.result.Skipped)
		r.fileProcessed(name, size)
		return nil
	}

	r.log.OnFileAction(action, r.display(src))
	if r.dryRun {
		r.incr(counter)
		r.fileProcessed(name, size)
		return nil
	}

	t := r.newTracker(worker, src, true)
	if err := fileops.Copy(src, dst, cancel, t.report); err != nil {
		if backup.IsCancelled(err) {
			return r.cancelled(worker)
		}
		return r.fail(kind, prefix, src, err)
	}
	r.incr(counter)

	if r.task.Verify && !isLink {
		eq, err := fileops.Compare(src, dst, cancel, status.report)
		if backup.IsCancelled(err) {
			return r.cancelled(worker)
		}
		if err != nil || !eq {
			r.log.Log("  VERIFICATION FAILED: " + dst)
			r.incr(&r.result.Mismatches)
			r.fileProcessed(name, size-t.last)
			if err == nil {
				err = errors.New("content differs after copy")
			}
			return backup.NewItemError(backup.KindVerify, dst, err)
		}
	}

	r.fileProcessed(name, size-t.last)
	return nil
}

type verifyMessages struct {
	missingDir  string
	missingFile string
	mismatch    string
	// missingBySource names a missing file by its source path rather
	// than the target path.
	missingBySource bool
}

var (
	walkVerifyMessages = verifyMessages{
		missingDir:      "Verify Fail (Missing Dir): ",
		missingFile:     "Verify Fail (Missing): ",
		mismatch:        "Verify Fail (Mismatch): ",
		missingBySource: true,
	}
	queueVerifyMessages = verifyMessages{
		missingDir:  "MISSING DIR: ",
		missingFile: "MISSING FILE: ",
		mismatch:    "MISMATCH: ",
	}
)

// verifyDir reports a missing target directory. It never creates one.
func (r *run) verifyDir(dst string, msgs verifyMessages) error {
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	r.log.Log(msgs.missingDir + dst)
	r.incr(&r.result.Mismatches)
	return backup.NewItemError(backup.KindMissing, dst, fs.ErrNotExist)
}

// verifyEntry checks a symlink or regular file against its target without
// touching either. The entry counts as processed whatever the outcome.
func (r *run) verifyEntry(worker int, src, dst string, info fs.FileInfo, cancel fileops.CancelCheck, msgs verifyMessages) error {
	name := filepath.Base(src)
	var size int64
	if info.Mode().IsRegular() {
		size = info.Size()
	}

	if _, err := os.Lstat(dst); err != nil {
		missing := dst
		if msgs.missingBySource {
			missing = src
		}
		r.log.Log(msgs.missingFile + missing)
		r.incr(&r.result.Mismatches)
		r.fileProcessed(name, size)
		return backup.NewItemError(backup.KindMissing, missing, err)
	}

	status := r.newTracker(worker, src, false)
	var reason string
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		if !fileops.SameLink(src, dst) {
			reason = "link target differs"
		}
	case r.task.Criteria.Data:
		eq, err := fileops.Compare(src, dst, cancel, status.report)
		switch {
		case backup.IsCancelled(err):
			return r.cancelled(worker)
		case err != nil:
			reason = string(fileops.ReasonProbe)
		case !eq:
			reason = string(fileops.ReasonContent)
		}
	default:
		update, why := fileops.Check(src, dst, r.task.Criteria, cancel, status.report)
		if why == fileops.ReasonCancelled {
			return r.cancelled(worker)
		}
		if update {
			reason = string(why)
		}
	}

	r.fileProcessed(name, size)
	if reason == "" {
		return nil
	}

	r.log.Log(fmt.Sprintf("%s%s (%s)", msgs.mismatch, src, reason))
	r.incr(&r.result.Mismatches)
	return backup.NewItemError(backup.KindVerify, src, errors.New(reason))
}
