// Package buffers provides reusable copy buffers for streaming image bytes
// into multipart bodies and preview copies.
package buffers

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rescale/imghub/internal/constants"
)

// Pool monitoring counters
var (
	copyAllocations int64 // New buffers created by the pool
	copyGets        int64 // Total GetCopyBuffer calls
)

// copyPool provides CopyBufferSize buffers for io.CopyBuffer.
var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&copyAllocations, 1)
		buf := make([]byte, constants.CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a buffer from the pool.
// Return it with PutCopyBuffer when done.
//
// Usage:
//
//	buf := buffers.GetCopyBuffer()
//	defer buffers.PutCopyBuffer(buf)
//	n, err := io.CopyBuffer(dst, src, *buf)
func GetCopyBuffer() *[]byte {
	atomic.AddInt64(&copyGets, 1)
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool. Buffers of the wrong size are
// dropped. The buffer is cleared so image bytes do not linger across uses.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.CopyBufferSize {
		clear(*buf)
		copyPool.Put(buf)
	}
}

// Copy is io.CopyBuffer with a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := GetCopyBuffer()
	defer PutCopyBuffer(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// Stats holds buffer pool statistics.
type Stats struct {
	CopyBufferSize  int   // Size of copy buffers (bytes)
	CopyAllocations int64 // Buffers allocated by the pool
	CopyGets        int64 // Buffers handed out
}

// GetStats returns current buffer pool statistics.
func GetStats() Stats {
	return Stats{
		CopyBufferSize:  constants.CopyBufferSize,
		CopyAllocations: atomic.LoadInt64(&copyAllocations),
		CopyGets:        atomic.LoadInt64(&copyGets),
	}
}
