package strategy

import (
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Parallel copies a tree with WorkerCount workers draining a shared queue.
// Directories are expanded into one item per entry. In Verify mode it
// behaves like Comparing.
type Parallel struct {
	pool pool
}

func (p *Parallel) Kind() Kind { return KindParallel }

func (p *Parallel) CancelWorker(index int) { p.pool.cancelWorker(index) }

func (p *Parallel) Execute(task backup.Task, log backup.Logger, dryRun bool) backup.Result {
	r := newRun(KindParallel, task, log, dryRun)
	if err := r.begin(); err != nil {
		return r.finish(err)
	}

	root := workItem{src: task.Source, dst: task.Target}
	var err error
	if task.Mode == backup.ModeVerify {
		err = p.pool.drain(r, "parallel verification", root, verifyHandler(r, &p.pool))
	} else {
		err = p.pool.drain(r, "parallel operation", root, p.copyHandler(r))
	}

	if err == nil && task.Mode == backup.ModeSync && !task.Aborted() {
		err = r.syncDelete(task.Source, task.Target)
	}
	return r.finish(err)
}

func (p *Parallel) copyHandler(r *run) handler {
	return func(worker int, item workItem, q *workQueue) error {
		info, err := os.Lstat(item.src)
		if err != nil {
			return r.fail(backup.KindReadDir, "  Read Error: ", item.src, err)
		}

		if info.IsDir() {
			if err := r.ensureDir(item.src, item.dst, info); err != nil {
				return err
			}
			return r.expand(item, q)
		}
		return r.copyEntry(worker, item.src, item.dst, info, p.pool.cancelCheck(r, worker))
	}
}

// expand enqueues one item per non-excluded directory entry.
func (r *run) expand(item workItem, q *workQueue) error {
	entries, err := os.ReadDir(item.src)
	if err != nil {
		return r.fail(backup.KindReadDir, "  Read Error: ", item.src, err)
	}

	children := make([]workItem, 0, len(entries))
	for _, e := range entries {
		src := filepath.Join(item.src, e.Name())
		if r.excluded(src) {
			continue
		}
		children = append(children, workItem{src: src, dst: filepath.Join(item.dst, e.Name())})
	}
	q.push(children...)
	return nil
}
