package backup

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeCopy   Mode = "Copy"
	ModeSync   Mode = "Sync"
	ModeVerify Mode = "Verify"
)

// ParseMode accepts a mode name in any letter case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "copy":
		return ModeCopy, nil
	case "sync", "mirror":
		return ModeSync, nil
	case "verify":
		return ModeVerify, nil
	}
	return "", fmt.Errorf("unknown mode %q (want copy, sync or verify)", s)
}

type ErrorPolicy string

const (
	PolicyContinue ErrorPolicy = "Continue"
	PolicySuspend  ErrorPolicy = "Suspend"
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return PolicyContinue, nil
	case "suspend", "stop":
		return PolicySuspend, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want continue or suspend)", s)
}

// Criteria selects which checks decide that a target file is stale.
type Criteria struct {
	Size bool `json:"size" yaml:"size"`
	Time bool `json:"time" yaml:"time"`
	Data bool `json:"data" yaml:"data"`
}

func DefaultCriteria() Criteria {
	return Criteria{Size: true, Time: true}
}

// Task describes one backup unit. Strategies never modify it.
type Task struct {
	Name        string
	Source      string
	Target      string
	Mode        Mode
	Verify      bool
	ErrorPolicy ErrorPolicy
	Criteria    Criteria

	// Excludes are doublestar patterns matched against slash separated
	// paths relative to the source root. ExcludeNames are shell patterns
	// matched against the entry name alone.
	Excludes     []string
	ExcludeNames []string

	// IsAborted is polled at loop boundaries. A nil predicate never aborts.
	IsAborted func() bool
}

func (t Task) Aborted() bool {
	return t.IsAborted != nil && t.IsAborted()
}

func (t Task) Suspends() bool {
	return t.ErrorPolicy == PolicySuspend
}

// Progress is a point-in-time copy of a run's counters.
type Progress struct {
	TotalFiles     int64  `json:"total_files"`
	ProcessedFiles int64  `json:"processed_files"`
	TotalBytes     int64  `json:"total_bytes"`
	ProcessedBytes int64  `json:"processed_bytes"`
	CurrentFile    string `json:"current_file,omitempty"`
}

// Percent returns the byte based completion, falling back to file counts
// for trees made of empty files.
func (p Progress) Percent() int {
	if p.TotalBytes > 0 {
		return clampPercent(p.ProcessedBytes * 100 / p.TotalBytes)
	}
	if p.TotalFiles > 0 {
		return clampPercent(p.ProcessedFiles * 100 / p.TotalFiles)
	}
	return 0
}

func clampPercent(v int64) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

type Action string

const (
	ActionCopy   Action = "Copy"
	ActionLink   Action = "Link"
	ActionDelete Action = "Delete"
)

// PreviewPrefix marks file action paths reported during a dry run.
const PreviewPrefix = "[PREVIEW] "

// Logger receives all telemetry of a run. Strategies serialize calls, so
// implementations need no locking of their own.
type Logger interface {
	Log(message string)
	OnFileAction(action Action, path string)
	OnProgress(path string)
	OnProgressDetailed(p Progress)
	OnWorkerProgress(worker int, file string, percent int)
}

type Status string

const (
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Result summarizes one strategy execution.
type Result struct {
	Task       string        `json:"task"`
	Strategy   string        `json:"strategy"`
	Status     Status        `json:"status"`
	DryRun     bool          `json:"dry_run"`
	Progress   Progress      `json:"progress"`
	Copied     int64         `json:"copied"`
	Linked     int64         `json:"linked"`
	Skipped    int64         `json:"skipped"`
	Deleted    int64         `json:"deleted"`
	Mismatches int64         `json:"mismatches"`
	Failures   int64         `json:"failures"`
	Cancelled  int64         `json:"cancelled"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// OK reports whether the run finished without failures or mismatches.
func (r Result) OK() bool {
	return r.Status == StatusCompleted && r.Failures == 0 && r.Mismatches == 0
}
