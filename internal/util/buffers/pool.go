// Package buffers pools the chunk buffers used by metered transfer
// copies, so sequential batches reuse one allocation per item size
// instead of growing the heap per file.
package buffers

import (
	"sync"

	"github.com/mediasink/mediasink/internal/constants"
)

var chunkPool = &sync.Pool{
	New: func() interface{} {
		buf := make([]byte, constants.ChunkSize)
		return &buf
	},
}

// GetChunkBuffer retrieves a ChunkSize buffer from the pool. The buffer
// must be returned with PutChunkBuffer when done.
func GetChunkBuffer() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunkBuffer returns a buffer to the pool for reuse. The buffer
// must not be used afterwards. Only full-size buffers are pooled, and
// contents are cleared first: download bodies can carry credential
// material (service-account documents, signed URLs).
func PutChunkBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.ChunkSize {
		clear(*buf)
		chunkPool.Put(buf)
	}
}
