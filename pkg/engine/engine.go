// Package engine runs backup tasks under a selected strategy and carries
// the abort and per-worker cancel controls to it.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
	"github.com/yuya-takeyama/sure-backup/pkg/strategy"
)

type Engine struct {
	log backup.Logger

	mu       sync.Mutex
	strategy strategy.Strategy

	aborted atomic.Bool
}

// New returns an engine reporting to log, preset to the sequential
// strategy.
func New(log backup.Logger) *Engine {
	if log == nil {
		log = logger.Null{}
	}
	s, _ := strategy.New(strategy.KindSequential)
	return &Engine{log: log, strategy: s}
}

func (e *Engine) SetStrategy(s strategy.Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = s
}

// SelectStrategy switches to a fresh strategy of the given kind.
func (e *Engine) SelectStrategy(kind strategy.Kind) error {
	s, err := strategy.New(kind)
	if err != nil {
		return err
	}
	e.SetStrategy(s)
	return nil
}

func (e *Engine) Strategy() strategy.Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategy
}

// Run executes task with the current strategy and blocks until it ends.
// The abort flag is cleared first; cancelling ctx aborts the run like
// Abort does. The task's own IsAborted predicate, if any, is honored too.
func (e *Engine) Run(ctx context.Context, task backup.Task, dryRun bool) backup.Result {
	e.aborted.Store(false)
	return e.execute(ctx, task, dryRun)
}

// Start runs task on a new goroutine. The channel receives the result
// once the run has ended and is then closed. The abort flag is cleared
// before Start returns, so an Abort issued any time after that stops
// the run.
func (e *Engine) Start(ctx context.Context, task backup.Task, dryRun bool) <-chan backup.Result {
	e.aborted.Store(false)
	done := make(chan backup.Result, 1)
	go func() {
		defer close(done)
		done <- e.execute(ctx, task, dryRun)
	}()
	return done
}

func (e *Engine) execute(ctx context.Context, task backup.Task, dryRun bool) backup.Result {
	s := e.Strategy()
	if s == nil {
		e.log.Log("Error: No backup strategy selected.")
		return backup.Result{
			Task:   task.Name,
			Status: backup.StatusFailed,
			DryRun: dryRun,
			Err:    backup.ErrNoStrategy,
			Error:  backup.ErrNoStrategy.Error(),
		}
	}

	own := task.IsAborted
	task.IsAborted = func() bool {
		return e.aborted.Load() || ctx.Err() != nil || (own != nil && own())
	}
	return s.Execute(task, e.log, dryRun)
}

// Abort asks every worker of the current run to stop.
func (e *Engine) Abort() {
	e.aborted.Store(true)
}

// CancelWorker interrupts only the operation the given worker slot is
// performing. The worker then moves on to the next item.
func (e *Engine) CancelWorker(index int) {
	if s := e.Strategy(); s != nil {
		s.CancelWorker(index)
	}
}

func (e *Engine) IsAborted() bool {
	return e.aborted.Load()
}

// Job pairs a task with the strategy it runs under. Note, if set, is
// logged before the task starts.
type Job struct {
	Kind strategy.Kind
	Task backup.Task
	Note string
}

// RunAll runs jobs in order and stops after the first aborted one.
func (e *Engine) RunAll(ctx context.Context, jobs []Job, dryRun bool, title string) ([]backup.Result, error) {
	results := make([]backup.Result, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := e.SelectStrategy(job.Kind); err != nil {
			return results, fmt.Errorf("unit %s: %w", job.Task.Name, err)
		}
		if job.Note != "" {
			e.log.Log(job.Note)
		}
		res := e.Run(ctx, job.Task, dryRun)
		results = append(results, res)
		if e.IsAborted() || res.Status == backup.StatusInterrupted {
			break
		}
	}
	e.log.Log(fmt.Sprintf("--- Task completed: %s ---", title))
	return results, nil
}
