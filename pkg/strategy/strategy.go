// Package strategy implements the ways a backup unit can be executed:
// a sequential depth-first walk, a parallel work queue, and a read-only
// comparison on the same queue.
package strategy

import (
	"fmt"
	"strings"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// WorkerCount is the pool size of the queue based strategies.
const WorkerCount = 4

type Kind int

const (
	KindSequential Kind = iota
	KindParallel
	KindComparing
)

func (k Kind) String() string {
	switch k {
	case KindSequential:
		return "Sequential"
	case KindParallel:
		return "Parallel"
	case KindComparing:
		return "Comparing"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "standard":
		return KindSequential, nil
	case "parallel":
		return KindParallel, nil
	case "comparing", "compare", "verify":
		return KindComparing, nil
	}
	return 0, fmt.Errorf("unknown strategy %q (want sequential, parallel or comparing)", s)
}

// Strategy executes one task. Execute blocks until the unit, including
// any delete pass, has completed, failed or been aborted, and never
// returns with a worker still running. An instance runs one task at a
// time.
type Strategy interface {
	Kind() Kind
	Execute(task backup.Task, log backup.Logger, dryRun bool) backup.Result
	// CancelWorker interrupts the operation the given pool slot is
	// currently performing. Out of range indexes are ignored.
	CancelWorker(index int)
}

// New returns a fresh strategy of the given kind.
func New(kind Kind) (Strategy, error) {
	switch kind {
	case KindSequential:
		return &Sequential{}, nil
	case KindParallel:
		return &Parallel{}, nil
	case KindComparing:
		return &Comparing{}, nil
	}
	return nil, fmt.Errorf("unknown strategy kind %d", int(kind))
}
