package strategy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
)

var allKinds = []Kind{KindSequential, KindParallel, KindComparing}

var copyKinds = []Kind{KindSequential, KindParallel}

// writeTree creates files below root. A value of "/" creates an empty
// directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if content == "/" {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func setMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// snapshot describes every entry below root including content and
// modification time, so any mutation shows up as a difference.
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, _ := os.Readlink(path)
			out = append(out, fmt.Sprintf("L %s -> %s", rel, target))
		case d.IsDir():
			out = append(out, fmt.Sprintf("D %s %d", rel, info.ModTime().UnixNano()))
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out = append(out, fmt.Sprintf("F %s %d %q", rel, info.ModTime().UnixNano(), data))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func newStrategy(t *testing.T, kind Kind) Strategy {
	t.Helper()
	s, err := New(kind)
	require.NoError(t, err)
	return s
}

func newTask(src, dst string, mode backup.Mode) backup.Task {
	return backup.Task{
		Name:        "test unit",
		Source:      src,
		Target:      dst,
		Mode:        mode,
		ErrorPolicy: backup.PolicyContinue,
		Criteria:    backup.DefaultCriteria(),
	}
}

func dirs(t *testing.T) (src, dst string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	dst = filepath.Join(root, "dst")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.Mkdir(dst, 0o755))
	return src, dst
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(p, backup.PreviewPrefix)
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func execute(t *testing.T, kind Kind, task backup.Task, dryRun bool) (backup.Result, *logger.Recorder) {
	t.Helper()
	rec := &logger.Recorder{}
	res := newStrategy(t, kind).Execute(task, rec, dryRun)
	return res, rec
}
