// Package descring implements a fixed-capacity, lock-free transport ring
// shared between exactly one producer and exactly one consumer.
//
// The ring is a single array of descriptor slots reused in place: the
// producer publishes work by setting the ownership bit in a slot's flag
// word, the consumer completes work by clearing it, and a wrap generation
// bit disambiguates ring traversals. Notifications between the two sides
// go through opaque doorbells and are suppressed with the classic event
// index rule, so steady-state traffic needs no wakes at all.
//
// Neither side ever blocks inside a ring operation. Submit reports a full
// ring immediately and polls report emptiness immediately; retry, backoff
// and sleeping are the caller's business.
//
// The SPSC discipline is a precondition, not a runtime check: attaching two
// producers or two consumers to one ring is undefined behavior.
package descring

import (
	"sync/atomic"

	"github.com/descring/go-descring/internal/constants"
	"github.com/descring/go-descring/internal/logging"
)

// Descriptor flag bits, stored in each slot's flag word.
const (
	// DescHW marks the slot as owned by the consumer ("hardware" side).
	// Set by the producer on submission, cleared by the consumer on
	// completion.
	DescHW uint32 = 0x80

	// DescWrap is the wrap generation bit. It alternates every full lap
	// of the ring so a reader can tell "submitted this lap" from
	// "submitted a lap ago".
	DescWrap uint32 = 0x40
)

// slot is one reusable ring entry. addr and len are plain fields ordered by
// the flag word: each side only reads them after an atomic load of flags
// that observed the other side's store, which establishes the needed
// happens-before edge. index is the stable slot identity assigned at
// initialization; it keys the producer's side table and is never rewritten.
type slot struct {
	addr  uint64
	len   uint32
	index uint16
	flags atomic.Uint32
}

// Notifier is the opaque wake primitive for one direction of traffic.
// Signal must not block; the ring calls it at most once per eligible
// progress step and never waits on it.
type Notifier interface {
	Signal() error
}

// Options configures ring creation.
type Options struct {
	// Metrics receives operation counters for this ring. When nil, the
	// ring allocates its own; retrieve it with Ring.Metrics.
	Metrics *Metrics
}

// Ring is the shared slot array plus the notification counters. It holds no
// per-side cursors; those live in the Producer and Consumer attached to it.
type Ring struct {
	slots  []slot
	mask   uint32
	size   uint32
	events eventState

	metrics *Metrics
}

// New creates a ring with the given slot capacity. Capacity must be a power
// of two between MinRingSize and MaxRingSize; the generation arithmetic and
// fast modulo indexing are only valid for power-of-two sizes.
func New(capacity int, opts *Options) (*Ring, error) {
	if capacity < constants.MinRingSize || capacity > constants.MaxRingSize ||
		capacity&(capacity-1) != 0 {
		return nil, NewError("NEW_RING", ErrCodeCapacity,
			"ring capacity must be a power of two in [2, 65536]")
	}

	r := &Ring{
		slots: make([]slot, capacity),
		mask:  uint32(capacity - 1),
		size:  uint32(capacity),
	}
	if opts != nil && opts.Metrics != nil {
		r.metrics = opts.Metrics
	} else {
		r.metrics = NewMetrics()
	}

	for i := range r.slots {
		s := &r.slots[i]
		s.index = uint16(i)
		// Initial generation deliberately mismatches lap 0 on both
		// sides: a never-submitted slot is neither dequeueable nor
		// reclaimable.
		s.flags.Store(DescWrap)
	}

	logging.Default().WithRing(capacity).Debug("ring initialized")
	return r, nil
}

// Size returns the slot capacity of the ring.
func (r *Ring) Size() int {
	return int(r.size)
}

// Metrics returns the ring's operation counters.
func (r *Ring) Metrics() *Metrics {
	return r.metrics
}

// RingState is a diagnostic snapshot of the shared notification counters.
// Per-side cursors are reported by Producer.State and Consumer.State, which
// must be called from their owning goroutines.
type RingState struct {
	Capacity  uint32
	KickIndex uint32 // consumer's wake-request watermark
	CallIndex uint32 // producer's wake-request watermark
}

// State returns a snapshot of the shared counters. Diagnostic only; the
// values may be stale by the time the caller looks at them.
func (r *Ring) State() RingState {
	return RingState{
		Capacity:  r.size,
		KickIndex: r.events.kick.Load(),
		CallIndex: r.events.call.Load(),
	}
}
