// Package logger holds the telemetry sinks a backup run reports to.
package logger

import (
	"strings"
	"sync"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Null discards everything.
type Null struct{}

func (Null) Log(string) {}
func (Null) OnFileAction(backup.Action, string) {}
func (Null) OnProgress(string) {}
func (Null) OnProgressDetailed(backup.Progress) {}
func (Null) OnWorkerProgress(int, string, int) {}

type synchronized struct {
	mu   sync.Mutex
	next backup.Logger
}

// Synchronized serializes every call into l so that workers never
// interleave inside a sink. A nil l becomes Null.
func Synchronized(l backup.Logger) backup.Logger {
	switch l := l.(type) {
	case nil:
		return Null{}
	case *synchronized, Null:
		return l
	}
	return &synchronized{next: l}
}

func (s *synchronized) Log(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Log(message)
}

func (s *synchronized) OnFileAction(action backup.Action, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnFileAction(action, path)
}

func (s *synchronized) OnProgress(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnProgress(path)
}

func (s *synchronized) OnProgressDetailed(p backup.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnProgressDetailed(p)
}

func (s *synchronized) OnWorkerProgress(worker int, file string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.OnWorkerProgress(worker, file, percent)
}

// Multi fans every event out to all sinks in order.
type Multi []backup.Logger

func (m Multi) Log(message string) {
	for _, l := range m {
		l.Log(message)
	}
}

func (m Multi) OnFileAction(action backup.Action, path string) {
	for _, l := range m {
		l.OnFileAction(action, path)
	}
}

func (m Multi) OnProgress(path string) {
	for _, l := range m {
		l.OnProgress(path)
	}
}

func (m Multi) OnProgressDetailed(p backup.Progress) {
	for _, l := range m {
		l.OnProgressDetailed(p)
	}
}

func (m Multi) OnWorkerProgress(worker int, file string, percent int) {
	for _, l := range m {
		l.OnWorkerProgress(worker, file, percent)
	}
}

// FileAction is one recorded file action event.
type FileAction struct {
	Action backup.Action `json:"action"`
	Path   string        `json:"path"`
}

// WorkerEvent is one recorded per-worker status event.
type WorkerEvent struct {
	Worker  int    `json:"worker"`
	File    string `json:"file"`
	Percent int    `json:"percent"`
}

// Recorder keeps every event in memory. It is safe to read while a run
// is in progress.
type Recorder struct {
	// OnWorker, when set, is invoked for each worker event after it has
	// been recorded.
	OnWorker func(WorkerEvent)

	mu        sync.Mutex
	messages  []string
	actions   []FileAction
	scanned   []string
	snapshots []backup.Progress
	workers   []WorkerEvent
}

func (r *Recorder) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *Recorder) OnFileAction(action backup.Action, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, FileAction{Action: action, Path: path})
}

func (r *Recorder) OnProgress(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = append(r.scanned, path)
}

func (r *Recorder) OnProgressDetailed(p backup.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, p)
}

func (r *Recorder) OnWorkerProgress(worker int, file string, percent int) {
	ev := WorkerEvent{Worker: worker, File: file, Percent: percent}
	r.mu.Lock()
	r.workers = append(r.workers, ev)
	hook := r.OnWorker
	r.mu.Unlock()

	if hook != nil {
		hook(ev)
	}
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *Recorder) Actions() []FileAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FileAction(nil), r.actions...)
}

func (r *Recorder) Scanned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scanned...)
}

func (r *Recorder) Snapshots() []backup.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backup.Progress(nil), r.snapshots...)
}

func (r *Recorder) WorkerEvents() []WorkerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WorkerEvent(nil), r.workers...)
}

// LastProgress returns the most recent snapshot, or the zero value.
func (r *Recorder) LastProgress() backup.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return backup.Progress{}
	}
	return r.snapshots[len(r.snapshots)-1]
}

// HasMessage reports whether any logged line contains substr.
func (r *Recorder) HasMessage(substr string) bool {
	for _, m := range r.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// ActionPaths returns the paths recorded for one action kind.
func (r *Recorder) ActionPaths(action backup.Action) []string {
	var paths []string
	for _, a := range r.Actions() {
		if a.Action == action {
			paths = append(paths, a.Path)
		}
	}
	return paths
}
