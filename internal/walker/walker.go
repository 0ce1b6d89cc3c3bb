package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/sure-backup/internal/filter"
)

// Totals is the size of a source tree as seen by the pre-scan.
type Totals struct {
	Files int64
	Bytes int64
}

// Walker sizes a source tree ahead of a backup run.
type Walker struct {
	root   string
	filter *filter.Filter
}

// NewWalker creates a walker rooted at root. The root must be a directory.
func NewWalker(root string, f *filter.Filter) (*Walker, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	return &Walker{
		root:   root,
		filter: f,
	}, nil
}

// Scan counts every non-directory entry and the bytes of regular files.
// Symlinks count as entries but their targets are not sized. Unreadable
// directories are skipped. Scan stops early, returning what it has, once
// aborted reports true.
func (w *Walker) Scan(aborted func() bool) (Totals, error) {
	var totals Totals

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if aborted != nil && aborted() {
			return filepath.SkipAll
		}
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if path == w.root {
				return err
			}
			return nil
		}

		if path != w.root {
			rel, err := filepath.Rel(w.root, path)
			if err != nil {
				return fmt.Errorf("get relative path: %w", err)
			}
			if w.filter.Excluded(filepath.ToSlash(rel)) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		totals.Files++
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			totals.Bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return totals, fmt.Errorf("walk directory: %w", err)
	}

	return totals, nil
}
