package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"golang.org/x/term"
)

// Progress draws a byte based progress bar for the running unit. It only
// reacts to progress snapshots; everything else is ignored.
type Progress struct {
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
	max     int64
}

// NewProgress returns a bar writing to w. The bar stays hidden unless w
// is a terminal.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{w: w, enabled: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (p *Progress) Log(string) {}
func (p *Progress) OnFileAction(backup.Action, string) {}
func (p *Progress) OnProgress(string) {}
func (p *Progress) OnWorkerProgress(int, string, int) {}

func (p *Progress) OnProgressDetailed(s backup.Progress) {
	if !p.enabled || s.TotalBytes <= 0 {
		return
	}

	if p.bar == nil || s.TotalBytes != p.max {
		p.reset(s.TotalBytes)
	}
	if s.CurrentFile != "" {
		p.bar.Describe(filepath.Base(s.CurrentFile))
	}
	_ = p.bar.Set64(s.ProcessedBytes)
}

// Finish completes the bar of the current unit, if any.
func (p *Progress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
	p.max = 0
}

func (p *Progress) reset(max int64) {
	if p.bar != nil && p.max != 0 {
		p.bar.ChangeMax64(max)
		p.max = max
		return
	}
	p.max = max
	p.bar = progressbar.NewOptions64(
		max,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
