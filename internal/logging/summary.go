package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// PrintSummary prints one block per unit and a grand total. In quiet mode
// nothing is printed unless something went wrong.
func PrintSummary(w io.Writer, results []backup.Result, quiet bool) {
	var total backup.Result
	for _, r := range results {
		total.Copied += r.Copied
		total.Linked += r.Linked
		total.Skipped += r.Skipped
		total.Deleted += r.Deleted
		total.Mismatches += r.Mismatches
		total.Failures += r.Failures
		total.Cancelled += r.Cancelled
		total.Progress.ProcessedBytes += r.Progress.ProcessedBytes
		total.Duration += r.Duration
		if !r.OK() {
			total.Status = backup.StatusFailed
		}
	}
	if quiet && total.Status != backup.StatusFailed {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	for _, r := range results {
		fmt.Fprintf(w, "%s [%s, %s]: %s\n", r.Task, r.Strategy, r.Status, formatCounts(r))
	}
	if len(results) > 1 {
		fmt.Fprintf(w, "Total: %s\n", formatCounts(total))
	}
	fmt.Fprintf(w, "Processed: %s\n", humanize.IBytes(uint64(total.Progress.ProcessedBytes)))
	fmt.Fprintf(w, "Duration: %s\n", total.Duration.Round(time.Millisecond))
}

func formatCounts(r backup.Result) string {
	s := fmt.Sprintf("copied %s, linked %s, skipped %s, deleted %s",
		humanize.Comma(r.Copied), humanize.Comma(r.Linked),
		humanize.Comma(r.Skipped), humanize.Comma(r.Deleted))
	if r.Mismatches > 0 {
		s += fmt.Sprintf(", mismatches %s", humanize.Comma(r.Mismatches))
	}
	if r.Failures > 0 {
		s += fmt.Sprintf(", errors %s", humanize.Comma(r.Failures))
	}
	if r.Cancelled > 0 {
		s += fmt.Sprintf(", cancelled %s", humanize.Comma(r.Cancelled))
	}
	return s
}
