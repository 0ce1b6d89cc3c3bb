package fileops

import "sync"

// ChunkSize bounds how much I/O happens between two cancellation polls.
const ChunkSize = 64 * 1024

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

func getChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

func putChunk(b *[]byte) {
	if cap(*b) != ChunkSize {
		return
	}
	*b = (*b)[:ChunkSize]
	chunkPool.Put(b)
}

// CancelCheck is polled between chunks. A nil CancelCheck never cancels.
type CancelCheck func() bool

func (c CancelCheck) cancelled() bool {
	return c != nil && c()
}

// ProgressFunc receives the total size and the bytes handled so far.
type ProgressFunc func(total, done int64)

func (p ProgressFunc) report(total, done int64) {
	if p != nil {
		p(total, done)
	}
}
