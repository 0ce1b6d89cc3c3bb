package strategy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/fileops"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
)

func never() bool { return false }

func TestWorkQueueDrains(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{src: "root"})

	item, ok := q.next(never)
	require.True(t, ok)
	assert.Equal(t, "root", item.src)

	q.push(workItem{src: "a"}, workItem{src: "b"})
	q.done()

	for _, want := range []string{"a", "b"} {
		item, ok = q.next(never)
		require.True(t, ok)
		assert.Equal(t, want, item.src)
		q.done()
	}

	_, ok = q.next(never)
	assert.False(t, ok, "queue with nothing outstanding must report completion")
}

func TestWorkQueueWaitsForOutstandingWork(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{src: "root"})
	_, ok := q.next(never)
	require.True(t, ok)

	got := make(chan workItem, 1)
	go func() {
		item, ok := q.next(never)
		if ok {
			got <- item
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("next returned while the root item was still being processed")
	case <-time.After(50 * time.Millisecond):
	}

	q.push(workItem{src: "child"})
	q.done()

	select {
	case item := <-got:
		assert.Equal(t, "child", item.src)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting worker was not woken by push")
	}
}

func TestWorkQueueStop(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{src: "a"}, workItem{src: "b"})
	q.stop()

	_, ok := q.next(never)
	assert.False(t, ok)
	assert.True(t, q.isStopped())
}

func TestWorkQueueAbortWakesIdleWorkers(t *testing.T) {
	q := newWorkQueue()
	q.push(workItem{src: "root"})
	_, ok := q.next(never)
	require.True(t, ok)

	var aborted atomic.Bool
	stop := watchAbort(q, aborted.Load)
	defer stop()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.next(aborted.Load)
		done <- ok
	}()

	aborted.Store(true)
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("idle worker did not observe the abort")
	}
}

func TestCancelWorkerIgnoresOutOfRange(t *testing.T) {
	var p pool
	p.cancelWorker(-1)
	p.cancelWorker(WorkerCount)
	for i := range p.cancel {
		assert.False(t, p.cancel[i].Load())
	}
	p.cancelWorker(2)
	assert.True(t, p.cancel[2].Load())
}

// abortAfter aborts the task once the given number of entries has been
// processed.
type abortAfter struct {
	*logger.Recorder
	files   int64
	aborted atomic.Bool
}

func (a *abortAfter) OnProgressDetailed(p backup.Progress) {
	a.Recorder.OnProgressDetailed(p)
	if p.ProcessedFiles >= a.files {
		a.aborted.Store(true)
	}
}

func bigFile() []byte {
	return bytes.Repeat([]byte("0123456789abcdef"), fileops.ChunkSize)
}

func TestAbortInterruptsRun(t *testing.T) {
	const files = 12
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			src, dst := dirs(t)
			data := bigFile()
			for i := 0; i < files; i++ {
				name := filepath.Join(src, fmt.Sprintf("f%02d.bin", i))
				require.NoError(t, os.WriteFile(name, data, 0o644))
				if kind == KindComparing {
					require.NoError(t, os.WriteFile(filepath.Join(dst, filepath.Base(name)), data, 0o644))
				}
			}
			writeTree(t, dst, map[string]string{"extra.txt": "survives an aborted sync"})

			sink := &abortAfter{Recorder: &logger.Recorder{}, files: 2}
			task := newTask(src, dst, backup.ModeSync)
			task.Criteria.Data = true
			task.IsAborted = sink.aborted.Load

			done := make(chan backup.Result, 1)
			go func() { done <- newStrategy(t, kind).Execute(task, sink, false) }()

			var res backup.Result
			select {
			case res = <-done:
			case <-time.After(30 * time.Second):
				t.Fatal("run did not stop after abort")
			}

			assert.Equal(t, backup.StatusInterrupted, res.Status)
			assert.Less(t, res.Progress.ProcessedFiles, int64(files))
			assert.True(t, sink.HasMessage("PROCESS INTERRUPTED BY USER."))
			assert.False(t, sink.HasMessage("CRITICAL ERROR"))
			assert.False(t, sink.HasMessage("Cancelled."), "abort must not be reported as a worker cancel")
			assert.FileExists(t, filepath.Join(dst, "extra.txt"))
			assert.Zero(t, res.Failures)
		})
	}
}

func TestCancelWorkerSkipsOnlyCurrentItem(t *testing.T) {
	for _, kind := range []Kind{KindParallel, KindComparing} {
		t.Run(kind.String(), func(t *testing.T) {
			src, dst := dirs(t)
			data := bigFile()
			require.NoError(t, os.WriteFile(filepath.Join(src, "big.bin"), data, 0o644))
			writeTree(t, src, map[string]string{"small1.txt": "one", "small2.txt": "two"})
			if kind == KindComparing {
				require.NoError(t, os.WriteFile(filepath.Join(dst, "big.bin"), data, 0o644))
				writeTree(t, dst, map[string]string{"small1.txt": "one", "small2.txt": "two"})
			}

			s := newStrategy(t, kind)
			var once sync.Once
			cancelled := -1
			rec := &logger.Recorder{}
			rec.OnWorker = func(ev logger.WorkerEvent) {
				if ev.File != "big.bin" || ev.Percent <= 0 || ev.Percent >= 100 {
					return
				}
				once.Do(func() {
					cancelled = ev.Worker
					s.CancelWorker(ev.Worker)
				})
			}

			task := newTask(src, dst, backup.ModeCopy)
			task.Criteria.Data = true
			res := s.Execute(task, rec, false)

			require.GreaterOrEqual(t, cancelled, 0, "big.bin never reported progress")
			assert.Equal(t, backup.StatusCompleted, res.Status)
			assert.Equal(t, int64(1), res.Cancelled)
			assert.Zero(t, res.Failures)
			assert.Zero(t, res.Mismatches)
			assert.True(t, rec.HasMessage(fmt.Sprintf("Worker %d Cancelled.", cancelled+1)))
			assert.False(t, rec.HasMessage("PROCESS INTERRUPTED BY USER."))

			if kind == KindParallel {
				assert.FileExists(t, filepath.Join(dst, "small1.txt"))
				assert.FileExists(t, filepath.Join(dst, "small2.txt"))
				assert.Equal(t, int64(2), res.Copied)
			}
		})
	}
}

func TestWorkersReportDone(t *testing.T) {
	src, dst := dirs(t)
	writeTree(t, src, map[string]string{"a.txt": "a"})

	_, rec := execute(t, KindParallel, newTask(src, dst, backup.ModeCopy), false)

	last := map[int]logger.WorkerEvent{}
	for _, ev := range rec.WorkerEvents() {
		last[ev.Worker] = ev
	}
	require.Len(t, last, WorkerCount)
	for i := 0; i < WorkerCount; i++ {
		assert.Equal(t, "Done", last[i].File)
		assert.Equal(t, 100, last[i].Percent)
	}
}
