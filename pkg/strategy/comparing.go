package strategy

import (
	"os"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Comparing checks a target tree against its source on the same worker
// queue as Parallel. It never writes to either tree, whatever the task
// mode or dry-run flag.
type Comparing struct {
	pool pool
}

func (c *Comparing) Kind() Kind { return KindComparing }

func (c *Comparing) CancelWorker(index int) { c.pool.cancelWorker(index) }

func (c *Comparing) Execute(task backup.Task, log backup.Logger, dryRun bool) backup.Result {
	r := newRun(KindComparing, task, log, dryRun)
	if err := r.begin(); err != nil {
		return r.finish(err)
	}

	root := workItem{src: task.Source, dst: task.Target}
	return r.finish(c.pool.drain(r, "comparison", root, verifyHandler(r, &c.pool)))
}

func verifyHandler(r *run, p *pool) handler {
	return func(worker int, item workItem, q *workQueue) error {
		info, err := os.Lstat(item.src)
		if err != nil {
			return r.fail(backup.KindReadDir, "  Read Error: ", item.src, err)
		}

		if info.IsDir() {
			missing := r.verifyDir(item.dst, queueVerifyMessages)
			if err := r.expand(item, q); err != nil {
				return err
			}
			return missing
		}
		return r.verifyEntry(worker, item.src, item.dst, info, p.cancelCheck(r, worker), queueVerifyMessages)
	}
}
