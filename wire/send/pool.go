package send

import "sync"

// chunkBufferPool recycles fixed-size chunk buffers, directly
// grounded on device/pools.go's GetMessageBuffer/PutMessageBuffer
// (the unconditional sync.Pool branch; this repo has no analog of
// WireGuard-go's PreallocatedBuffersPerPool channel-backed variant,
// since chunk buffers here are per-transfer rather than per-packet
// and don't need that tighter allocation-latency guarantee).
var chunkBufferPool = sync.Pool{
	New: func() interface{} {
		return new([ChunkSize]byte)
	},
}

// getChunkBuffer borrows a ChunkSize buffer.
func getChunkBuffer() *[ChunkSize]byte {
	return chunkBufferPool.Get().(*[ChunkSize]byte)
}

// putChunkBuffer returns a buffer for reuse.
func putChunkBuffer(buf *[ChunkSize]byte) {
	chunkBufferPool.Put(buf)
}
