// Package bufpool provides pooled payload buffers for ring drivers and test
// harnesses, avoiding per-submission allocations on the hot loop.
//
// Uses size-bucketed pools with power-of-2 sizes (4KB, 16KB, 64KB, 256KB).
// Requests above the largest bucket fall back to plain allocation.
//
// Uses the *[]byte pattern to avoid sync.Pool interface allocation overhead.
package bufpool

import "sync"

// Buffer size thresholds
const (
	size4k   = 4 * 1024
	size16k  = 16 * 1024
	size64k  = 64 * 1024
	size256k = 256 * 1024
)

var pools = struct {
	pool4k   sync.Pool
	pool16k  sync.Pool
	pool64k  sync.Pool
	pool256k sync.Pool
}{
	pool4k:   sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	pool16k:  sync.Pool{New: func() any { b := make([]byte, size16k); return &b }},
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
}

// Get returns a pooled buffer of at least the requested size.
// Caller must call Put when done.
func Get(size uint32) []byte {
	switch {
	case size <= size4k:
		return (*pools.pool4k.Get().(*[]byte))[:size]
	case size <= size16k:
		return (*pools.pool16k.Get().(*[]byte))[:size]
	case size <= size64k:
		return (*pools.pool64k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*pools.pool256k.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to the pool.
// The buffer's capacity determines which pool it goes to; buffers that did
// not come from a pool are dropped for the GC to collect.
func Put(buf []byte) {
	c := cap(buf)
	// Restore full capacity before returning to pool
	buf = buf[:c]
	switch c {
	case size4k:
		pools.pool4k.Put(&buf)
	case size16k:
		pools.pool16k.Put(&buf)
	case size64k:
		pools.pool64k.Put(&buf)
	case size256k:
		pools.pool256k.Put(&buf)
	}
}
