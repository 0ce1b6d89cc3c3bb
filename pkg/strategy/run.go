package strategy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yuya-takeyama/sure-backup/internal/filter"
	"github.com/yuya-takeyama/sure-backup/internal/walker"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
)

const separator = "--------------------------------------------------"

// run is the state of one strategy execution.
type run struct {
	kind   Kind
	task   backup.Task
	log    backup.Logger
	dryRun bool
	filter *filter.Filter
	start  time.Time

	// mu guards progress and result. Progress events are emitted while
	// holding it so that observers see a non-decreasing sequence.
	mu       sync.Mutex
	progress backup.Progress
	result   backup.Result
}

func newRun(kind Kind, task backup.Task, log backup.Logger, dryRun bool) *run {
	return &run{
		kind:   kind,
		task:   task,
		log:    logger.Synchronized(log),
		dryRun: dryRun,
		start:  time.Now(),
		result: backup.Result{
			Task:     task.Name,
			Strategy: kind.String(),
			DryRun:   dryRun,
		},
	}
}

// begin prints the start banner, checks the source and sizes the tree.
func (r *run) begin() error {
	r.banner()

	f, err := filter.New(r.task.Excludes, r.task.ExcludeNames)
	if err != nil {
		return err
	}
	r.filter = f

	info, err := os.Stat(r.task.Source)
	if err != nil || !info.IsDir() {
		r.log.Log("ERROR: Source path not found.")
		return backup.ErrSourceMissing
	}

	r.log.Log("Scanning source... please wait.")
	w, err := walker.NewWalker(r.task.Source, r.filter)
	if err != nil {
		return fmt.Errorf("scan source: %w", err)
	}
	totals, err := w.Scan(r.task.Aborted)
	if err != nil {
		r.log.Log("  Scan Error: " + err.Error())
	}

	r.mu.Lock()
	r.progress.TotalFiles = totals.Files
	r.progress.TotalBytes = totals.Bytes
	r.log.OnProgressDetailed(r.progress)
	r.mu.Unlock()
	return nil
}

func (r *run) banner() {
	mode := "BACKUP EXECUTION MODE"
	if r.dryRun {
		mode = "PREVIEW / SIMULATION MODE"
	}
	taskMode := string(r.task.Mode)
	if r.kind == KindComparing {
		mode = "COMPARING / CHECKING ENGINE START"
		taskMode = string(backup.ModeVerify)
	}

	r.log.Log(separator)
	r.log.Log(mode)
	r.log.Log(fmt.Sprintf("Name: %s (%s)", r.task.Name, taskMode))
	r.log.Log("Source: " + r.task.Source)
	r.log.Log("Target: " + r.task.Target)
	r.log.Log(separator)
}

func (r *run) finishedMessage() string {
	switch {
	case r.kind == KindComparing:
		return "Comparison engine finished."
	case r.kind == KindParallel && r.dryRun:
		return "Parallel Preview finished."
	case r.kind == KindParallel:
		return "Parallel Backup finished."
	case r.dryRun:
		return "Preview simulation finished."
	}
	return "Backup execution finished."
}

// finish prints the closing banner and builds the result. err is the
// condition that ended the run early, if any.
func (r *run) finish(err error) backup.Result {
	aborted := r.task.Aborted()
	if err != nil && !aborted && !errors.Is(err, backup.ErrSourceMissing) {
		r.log.Log("CRITICAL ERROR: " + err.Error())
	}

	r.mu.Lock()
	res := r.result
	res.Progress = r.progress
	r.mu.Unlock()

	res.Duration = time.Since(r.start)
	r.log.Log(separator)
	switch {
	case aborted:
		res.Status = backup.StatusInterrupted
		r.log.Log("PROCESS INTERRUPTED BY USER.")
	case err != nil:
		res.Status = backup.StatusFailed
		res.Err = err
		res.Error = err.Error()
		r.log.Log("PROCESS FAILED.")
	default:
		res.Status = backup.StatusCompleted
		r.log.Log(r.finishedMessage())
	}
	r.log.Log(separator)
	return res
}

func (r *run) incr(field *int64) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// fileProcessed counts one finished entry and the bytes not yet reported
// for it.
func (r *run) fileProcessed(name string, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.ProcessedFiles++
	if bytes > 0 {
		r.progress.ProcessedBytes += bytes
	}
	r.progress.CurrentFile = name
	r.log.OnProgressDetailed(r.progress)
}

func (r *run) bytesProcessed(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.ProcessedBytes += delta
	r.progress.CurrentFile = name
	r.log.OnProgressDetailed(r.progress)
}

func (r *run) excluded(src string) bool {
	if r.filter == nil {
		return false
	}
	rel, err := filepath.Rel(r.task.Source, src)
	if err != nil {
		return false
	}
	return r.filter.Excluded(filepath.ToSlash(rel))
}

func (r *run) display(path string) string {
	if r.dryRun {
		return backup.PreviewPrefix + path
	}
	return path
}

// escalate turns a per-item failure into a run-ending error under the
// Suspend policy.
func (r *run) escalate(err error) error {
	if err == nil || backup.IsCancelled(err) || !r.task.Suspends() {
		return nil
	}
	return err
}

// fail logs a per-item failure and counts it.
func (r *run) fail(kind backup.ErrorKind, prefix, path string, err error) error {
	r.log.Log(fmt.Sprintf("%s%s: %v", prefix, path, err))
	r.incr(&r.result.Failures)
	return backup.NewItemError(kind, path, err)
}

// cancelled handles an interrupted operation. It is never an error.
func (r *run) cancelled(worker int) error {
	if r.task.Aborted() {
		return nil
	}
	if worker >= 0 {
		r.log.Log(fmt.Sprintf("Worker %d Cancelled.", worker+1))
	} else {
		r.log.Log("Operation cancelled.")
	}
	r.incr(&r.result.Cancelled)
	return nil
}

// ensureDir creates the target directory for src unless running dry.
func (r *run) ensureDir(src, dst string, info fs.FileInfo) error {
	if r.dryRun {
		return nil
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
		return r.fail(backup.KindDirCreate, "  Dir Create Error: ", dst, err)
	}
	return nil
}

// tracker turns copy and compare callbacks into progress telemetry.
type tracker struct {
	r      *run
	worker int
	name   string
	count  bool
	last   int64
	pct    int
}

func (r *run) newTracker(worker int, src string, count bool) *tracker {
	return &tracker{r: r, worker: worker, name: filepath.Base(src), count: count, pct: -1}
}

func (t *tracker) report(total, done int64) {
	if t.count && done > t.last {
		t.r.bytesProcessed(t.name, done-t.last)
	}
	if done > t.last {
		t.last = done
	}
	if t.worker < 0 || total <= 0 {
		return
	}
	if pct := int(done * 100 / total); pct != t.pct {
		t.pct = pct
		t.r.log.OnWorkerProgress(t.worker, t.name, pct)
	}
}
