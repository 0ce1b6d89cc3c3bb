package strategy

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"golang.org/x/sync/errgroup"
)

// abortPollInterval bounds how long idle workers sleep before noticing a
// task-level abort.
const abortPollInterval = 20 * time.Millisecond

type workItem struct {
	src string
	dst string
}

// workQueue is a FIFO of pending items plus the count of items that have
// been enqueued but not yet fully processed. The pool is finished exactly
// when that count drops to zero.
type workQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []workItem
	outstanding int
	stopped     bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues items. Callers push children before marking the parent
// done so that the outstanding count never reaches zero early.
func (q *workQueue) push(items ...workItem) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.outstanding += len(items)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// next blocks until an item is available, all work is done, or the pool
// is stopped or aborted.
func (q *workQueue) next(aborted func() bool) (workItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.stopped || aborted() {
			return workItem{}, false
		}
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = workItem{}
			q.items = q.items[1:]
			return item, true
		}
		if q.outstanding == 0 {
			return workItem{}, false
		}
		q.cond.Wait()
	}
}

func (q *workQueue) done() {
	q.mu.Lock()
	q.outstanding--
	finished := q.outstanding == 0
	q.mu.Unlock()
	if finished {
		q.cond.Broadcast()
	}
}

// stop is the pool-wide abort used by the Suspend policy.
func (q *workQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *workQueue) isStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

func (q *workQueue) wake() {
	q.cond.Broadcast()
}

// watchAbort wakes idle workers once the abort predicate turns true. The
// returned function stops the watcher and waits for it to exit.
func watchAbort(q *workQueue, aborted func() bool) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(abortPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if aborted() {
					q.wake()
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// handler processes one claimed item. A returned error is a per-item
// failure; under the Suspend policy it stops the pool.
type handler func(worker int, item workItem, q *workQueue) error

// pool is the fixed set of worker slots shared by the queue based
// strategies. Each slot owns one cancel flag.
type pool struct {
	cancel [WorkerCount]atomic.Bool
}

func (p *pool) cancelWorker(index int) {
	if index < 0 || index >= WorkerCount {
		return
	}
	p.cancel[index].Store(true)
}

// cancelCheck reports whether the operation of a slot must stop, either
// because the slot was cancelled or the whole task was aborted.
func (p *pool) cancelCheck(r *run, worker int) func() bool {
	return func() bool {
		return p.cancel[worker].Load() || r.task.Aborted()
	}
}

// drain seeds the queue with root and runs WorkerCount workers until the
// queue is exhausted, the task is aborted, or a failure stops the pool.
func (p *pool) drain(r *run, name string, root workItem, handle handler) error {
	for i := range p.cancel {
		p.cancel[i].Store(false)
	}

	q := newWorkQueue()
	q.push(root)
	stopWatch := watchAbort(q, r.task.Aborted)

	var g errgroup.Group
	for i := 0; i < WorkerCount; i++ {
		worker := i
		g.Go(func() error {
			return p.work(r, worker, q, handle)
		})
	}
	err := g.Wait()
	stopWatch()

	if err != nil {
		return fmt.Errorf("%s: %w: %w", name, backup.ErrSuspended, err)
	}
	return nil
}

// work runs one worker slot. It returns the failure that stopped the
// pool, if this slot raised it.
func (p *pool) work(r *run, worker int, q *workQueue, handle handler) error {
	var failure error
	for {
		r.log.OnWorkerProgress(worker, "Waiting...", 0)
		item, ok := q.next(r.task.Aborted)
		if !ok {
			break
		}

		// A cancel request only ever applies to the item in flight.
		p.cancel[worker].Store(false)
		r.log.OnProgress(item.src)
		r.log.OnWorkerProgress(worker, filepath.Base(item.src), 0)

		if err := r.escalate(handle(worker, item, q)); err != nil && failure == nil {
			failure = err
			q.stop()
		}
		q.done()
	}

	if r.task.Aborted() || q.isStopped() {
		r.log.OnWorkerProgress(worker, "Idle", 0)
		return failure
	}
	r.log.OnWorkerProgress(worker, "Done", 100)
	return nil
}
