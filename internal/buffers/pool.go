// Package buffers provides reusable byte buffers to reduce heap allocations
// during upload/download operations.
package buffers

import (
	"sync"
)

// ChunkSize is the block size for transfer copy loops. It is also the
// progress checkpoint granularity: cancellation is observed between
// blocks of this size.
const ChunkSize = 32 * 1024

var chunkPool = &sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetChunk retrieves a ChunkSize buffer from the pool. Return it with
// PutChunk when done.
//
// Usage:
//
//	buf := buffers.GetChunk()
//	defer buffers.PutChunk(buf)
//	n, err := src.Read(*buf)
func GetChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunk returns a buffer to the pool for reuse. The buffer must not
// be used after this call. Only buffers of the correct size are pooled.
func PutChunk(buf *[]byte) {
	if buf != nil && len(*buf) == ChunkSize {
		chunkPool.Put(buf)
	}
}
