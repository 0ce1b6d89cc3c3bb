package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yuya-takeyama/sure-backup/internal/filter"
)

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScan(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		excludes  []string
		names     []string
		wantFiles int64
		wantBytes int64
	}{
		{
			name:      "empty tree",
			files:     map[string]string{},
			wantFiles: 0,
			wantBytes: 0,
		},
		{
			name: "nested files",
			files: map[string]string{
				"file1.txt":            "hello1",
				"file2.txt":            "hello2",
				"subfolder/nested.txt": "nested",
			},
			wantFiles: 3,
			wantBytes: 18,
		},
		{
			name: "excluded directory",
			files: map[string]string{
				"keep.txt":      "12345",
				"cache/a.bin":   "123",
				"cache/d/b.bin": "1",
			},
			excludes:  []string{"cache/"},
			wantFiles: 1,
			wantBytes: 5,
		},
		{
			name: "excluded names",
			files: map[string]string{
				"a/Thumbs.db": "xxxx",
				"a/photo.jpg": "yy",
			},
			names:     []string{"thumbs.db"},
			wantFiles: 1,
			wantBytes: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := makeTree(t, tt.files)
			f, err := filter.New(tt.excludes, tt.names)
			if err != nil {
				t.Fatalf("filter.New() error = %v", err)
			}
			w, err := NewWalker(root, f)
			if err != nil {
				t.Fatalf("NewWalker() error = %v", err)
			}

			got, err := w.Scan(nil)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if got.Files != tt.wantFiles || got.Bytes != tt.wantBytes {
				t.Errorf("Scan() = %+v, want files=%d bytes=%d", got, tt.wantFiles, tt.wantBytes)
			}
		})
	}
}

func TestScanCountsSymlinksWithoutSize(t *testing.T) {
	root := makeTree(t, map[string]string{"real.txt": "0123456789"})
	if err := os.Symlink("real.txt", filepath.Join(root, "link.txt")); err != nil {
		t.Fatal(err)
	}

	w, err := NewWalker(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := w.Scan(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 2 || got.Bytes != 10 {
		t.Errorf("Scan() = %+v, want files=2 bytes=10", got)
	}
}

func TestScanAborted(t *testing.T) {
	root := makeTree(t, map[string]string{"a": "1", "b": "2"})
	w, err := NewWalker(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := w.Scan(func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 0 {
		t.Errorf("aborted Scan() counted %d files", got.Files)
	}
}

func TestNewWalkerRejectsFile(t *testing.T) {
	root := makeTree(t, map[string]string{"a.txt": "x"})
	if _, err := NewWalker(filepath.Join(root, "a.txt"), nil); err == nil {
		t.Error("NewWalker() accepted a regular file as root")
	}
	if _, err := NewWalker(filepath.Join(root, "missing"), nil); err == nil {
		t.Error("NewWalker() accepted a missing root")
	}
}
