package pool

import (
	"bytes"
	"sync"
)

const (
	// SmallBufferSize defines the size for small buffers (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize defines the size for medium buffers (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize defines the size for large buffers (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages reusable buffers of different sizes to reduce allocations.
type BufferPool struct {
	small  *sync.Pool
	medium *sync.Pool
	large  *sync.Pool
}

func newClass(size int) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, size))
		},
	}
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newClass(SmallBufferSize),
		medium: newClass(MediumBufferSize),
		large:  newClass(LargeBufferSize),
	}
}

// Get returns an empty buffer able to hold sizeHint bytes without growing.
// Hints above LargeBufferSize get a fresh buffer that Put will not retain.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get(sizeHint int) *bytes.Buffer {
	var buf *bytes.Buffer
	switch {
	case sizeHint <= SmallBufferSize:
		buf = bp.small.Get().(*bytes.Buffer)
	case sizeHint <= MediumBufferSize:
		buf = bp.medium.Get().(*bytes.Buffer)
	case sizeHint <= LargeBufferSize:
		buf = bp.large.Get().(*bytes.Buffer)
	default:
		return bytes.NewBuffer(make([]byte, 0, sizeHint))
	}
	buf.Reset()
	return buf
}

// Put returns a buffer to the class matching its capacity.
// Buffers that grew past LargeBufferSize are dropped to avoid memory bloat.
// The buffer should not be used after calling Put.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	switch c := buf.Cap(); {
	case c > LargeBufferSize:
		// dropped
	case c >= LargeBufferSize:
		bp.large.Put(buf)
	case c >= MediumBufferSize:
		bp.medium.Put(buf)
	case c >= SmallBufferSize:
		bp.small.Put(buf)
	}
}

// Global buffer pool instance for use throughout the module.
var globalBufferPool = NewBufferPool()

// Get returns a buffer from the global pool for the specified size.
func Get(sizeHint int) *bytes.Buffer {
	return globalBufferPool.Get(sizeHint)
}

// Put returns a buffer to the global pool.
func Put(buf *bytes.Buffer) {
	globalBufferPool.Put(buf)
}
