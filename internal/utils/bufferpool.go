package utils

import "sync"

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 4096)
	},
}

// GetBuffer returns a zero-length-extended byte slice of exactly size
// bytes from the pool, growing the backing array when the pooled
// buffer is too small.
func GetBuffer(size int) []byte {
	buf, _ := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer obtained from GetBuffer to the pool.
func ReleaseBuffer(buf []byte) {
	//nolint:staticcheck // slice descriptor copy is fine for sync.Pool reuse
	bufferPool.Put(buf[:0])
}
