// Package pool provides object pooling for Strata's serialization paths.
// It wraps sync.Pool with type safety and keeps pre-configured global pools
// for the buffers the codecs allocate on every call, reducing garbage
// collection pressure on hot write/read paths.
package pool

import (
	"bytes"
	"sync"
)

// Pool represents a generic object pool with type safety. The reset function
// is applied before an object is returned to the pool. Safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a new typed pool with custom allocation and reset functions.
func New[T any](newFn func() T, resetFn func(T)) *Pool[T] {
	return &Pool[T]{
		pool:  sync.Pool{New: func() interface{} { return newFn() }},
		reset: resetFn,
	}
}

// Get retrieves an object from the pool, allocating one if empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an object to the pool after resetting it.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// maxPooledBuffer caps the size of buffers kept for reuse; anything larger
// is dropped so one oversized payload does not pin memory forever.
const maxPooledBuffer = 4 << 20

var bufferPool = New(
	func() *bytes.Buffer { return &bytes.Buffer{} },
	func(b *bytes.Buffer) { b.Reset() },
)

// GetBuffer retrieves a reusable byte buffer from the global pool.
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get()
}

// PutBuffer returns a byte buffer to the global pool.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

var rowPool = New(
	func() map[string]interface{} { return make(map[string]interface{}, 16) },
	func(m map[string]interface{}) {
		for k := range m {
			delete(m, k)
		}
	},
)

// GetRow retrieves a reusable field-name-to-value map from the global pool.
func GetRow() map[string]interface{} {
	return rowPool.Get()
}

// PutRow returns a row map to the global pool.
func PutRow(m map[string]interface{}) {
	if m == nil {
		return
	}
	rowPool.Put(m)
}
