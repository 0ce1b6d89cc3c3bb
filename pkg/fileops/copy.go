package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Copy copies a regular file or a symlink from src to dst and carries the
// source access and modification times over on success. A cancelled copy
// returns backup.ErrCancelled and leaves the partial target in place.
func Copy(src, dst string, cancel CancelCheck, progress ProgressFunc) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	// Read times before the copy touches the source access time.
	atime, mtime, err := statTimes(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		err = copyLink(src, dst)
	case info.Mode().IsRegular():
		err = copyFile(src, dst, info, cancel, progress)
	default:
		err = fmt.Errorf("unsupported file type %s", info.Mode().Type())
	}
	if err != nil {
		return err
	}

	if err := setTimes(dst, atime, mtime); err != nil {
		return fmt.Errorf("set timestamps: %w", err)
	}
	return nil
}

// CopyTimes applies the access and modification times of src to dst.
func CopyTimes(src, dst string) error {
	atime, mtime, err := statTimes(src)
	if err != nil {
		return err
	}
	return setTimes(dst, atime, mtime)
}

func copyLink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read symlink: %w", err)
	}

	err = os.Symlink(target, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create symlink: %w", err)
	}

	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("remove existing target: %w", err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}
	return nil
}

func copyFile(src, dst string, info fs.FileInfo, cancel CancelCheck, progress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	// Opening a symlink for writing would overwrite whatever it points at.
	if existing, err := os.Lstat(dst); err == nil && existing.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("remove existing symlink: %w", err)
		}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	if err := streamCopy(out, in, info.Size(), cancel, progress); err != nil {
		out.Close()
		return err
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return fmt.Errorf("chmod target: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	return nil
}

func streamCopy(w io.Writer, r io.Reader, total int64, cancel CancelCheck, progress ProgressFunc) error {
	buf := getChunk()
	defer putChunk(buf)

	var done int64
	progress.report(total, 0)
	for {
		if cancel.cancelled() {
			return backup.ErrCancelled
		}

		n, rerr := r.Read(*buf)
		if n > 0 {
			if _, werr := w.Write((*buf)[:n]); werr != nil {
				return fmt.Errorf("write target: %w", werr)
			}
			done += int64(n)
			progress.report(total, done)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read source: %w", rerr)
		}
	}
}
