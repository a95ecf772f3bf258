package barrier

import "sync/atomic"

// barrierDummy is the target for atomic operations used purely for their
// memory barrier semantics.
var barrierDummy int64

// Mfence issues a full memory fence.
// atomic.AddInt64 with 0 compiles to LOCK XADD on x86-64, which has full
// fence semantics with no contention and minimal overhead (~20 cycles).
// On arm64 it lowers to LDADDAL, which is likewise a full barrier.
func Mfence() {
	atomic.AddInt64(&barrierDummy, 0)
}
