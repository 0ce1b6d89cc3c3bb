package fileops

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Compare checks two files byte for byte. Files of different size, and
// anything that is not a regular file, are unequal without being opened.
// A cancelled comparison returns backup.ErrCancelled.
func Compare(a, b string, cancel CancelCheck, progress ProgressFunc) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b, err)
	}
	if !infoA.Mode().IsRegular() || !infoB.Mode().IsRegular() {
		return false, nil
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", a, err)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", b, err)
	}
	defer fb.Close()

	bufA, bufB := getChunk(), getChunk()
	defer putChunk(bufA)
	defer putChunk(bufB)

	total := infoA.Size()
	var done int64
	for {
		if cancel.cancelled() {
			return false, backup.ErrCancelled
		}

		na, errA := io.ReadFull(fa, *bufA)
		endA, errA := chunkEnd(errA)
		if errA != nil {
			return false, fmt.Errorf("read %s: %w", a, errA)
		}
		nb, errB := io.ReadFull(fb, *bufB)
		endB, errB := chunkEnd(errB)
		if errB != nil {
			return false, fmt.Errorf("read %s: %w", b, errB)
		}

		if na != nb || endA != endB || !bytes.Equal((*bufA)[:na], (*bufB)[:nb]) {
			return false, nil
		}
		done += int64(na)
		progress.report(total, done)

		if endA {
			return true, nil
		}
	}
}

// Equal is Compare folded to a boolean: errors and cancellation count as
// a difference.
func Equal(a, b string, cancel CancelCheck, progress ProgressFunc) bool {
	eq, err := Compare(a, b, cancel, progress)
	return err == nil && eq
}

func chunkEnd(err error) (bool, error) {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true, nil
	}
	return false, err
}
