package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

var (
	copyColor   = color.New(color.FgGreen)
	linkColor   = color.New(color.FgCyan)
	deleteColor = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed, color.Bold)
	bannerColor = color.New(color.Bold)
)

// Console prints the human readable log of a run.
type Console struct {
	Out io.Writer
	// Quiet keeps only errors, mismatches and file actions.
	Quiet bool
	// Verbose also prints per-worker status lines.
	Verbose bool
}

func NewConsole(quiet, verbose bool) *Console {
	return &Console{Out: os.Stdout, Quiet: quiet, Verbose: verbose}
}

func (c *Console) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Console) Log(message string) {
	problem := isProblem(message)
	if c.Quiet && !problem {
		return
	}

	switch {
	case problem:
		errorColor.Fprintln(c.out(), message)
	case strings.HasPrefix(message, "----") || strings.HasSuffix(message, "MODE"):
		bannerColor.Fprintln(c.out(), message)
	default:
		fmt.Fprintln(c.out(), message)
	}
}

func (c *Console) OnFileAction(action backup.Action, path string) {
	switch action {
	case backup.ActionCopy:
		copyColor.Fprintf(c.out(), "%s: %s\n", action, path)
	case backup.ActionLink:
		linkColor.Fprintf(c.out(), "%s: %s\n", action, path)
	case backup.ActionDelete:
		deleteColor.Fprintf(c.out(), "%s: %s\n", action, path)
	default:
		fmt.Fprintf(c.out(), "%s: %s\n", action, path)
	}
}

func (c *Console) OnProgress(string) {}

func (c *Console) OnProgressDetailed(p backup.Progress) {
	if !c.Verbose {
		return
	}
	fmt.Fprintf(c.out(), "  %d/%d files, %s/%s (%d%%)\n",
		p.ProcessedFiles, p.TotalFiles,
		humanize.IBytes(uint64(p.ProcessedBytes)), humanize.IBytes(uint64(p.TotalBytes)),
		p.Percent())
}

func (c *Console) OnWorkerProgress(worker int, file string, percent int) {
	if !c.Verbose {
		return
	}
	// Slots are 1-based on screen.
	fmt.Fprintf(c.out(), "  [worker %d] %3d%% %s\n", worker+1, percent, file)
}

var problemMarkers = []string{
	"ERROR", "Error:", "FAILED", "Failed", "Verify Fail", "MISSING", "MISMATCH", "INTERRUPTED",
}

func isProblem(message string) bool {
	for _, m := range problemMarkers {
		if strings.Contains(message, m) {
			return true
		}
	}
	return false
}
