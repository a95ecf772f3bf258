package descring

import (
	"github.com/descring/go-descring/internal/barrier"
	"github.com/descring/go-descring/internal/constants"
)

// SlotHandle is one dequeued unit of work: the descriptor's payload address
// and length, plus the slot position needed by Complete. The consumer never
// sees the producer's side table; the payload address is an opaque token.
type SlotHandle struct {
	Addr uint64
	Len  uint32

	head uint32
}

// Consumer is the processing side of a ring. All methods must be called
// from a single goroutine (or otherwise externally serialized); none of
// them block.
type Consumer struct {
	ring *Ring
	call Notifier

	// usedIdx is the free-running consumption counter; wrap is the
	// generation a submission for the current lap must carry.
	usedIdx uint32
	wrap    uint32

	calledUsedIdx uint32

	_ [constants.SidePadding]byte
}

// NewConsumer attaches the consuming side to the ring. call is the doorbell
// rung to wake the producer; nil means pure polling.
//
// SPSC precondition: at most one Consumer per ring, ever.
func (r *Ring) NewConsumer(call Notifier) *Consumer {
	return &Consumer{
		ring:          r,
		call:          call,
		calledUsedIdx: ^uint32(0),
	}
}

// Dequeue checks for a new submission at the consumption cursor. The bool
// result is false when the slot's ownership bit or generation does not
// match this lap; nothing is mutated in that case.
func (c *Consumer) Dequeue() (SlotHandle, bool) {
	r := c.ring
	head := c.usedIdx & r.mask
	s := &r.slots[head]

	// Acquire load, pairing with the producer's submit store. addr and
	// len below are only trusted once this observes DescHW with the
	// current generation.
	flags := s.flags.Load()
	if flags&DescHW == 0 || flags&DescWrap != c.wrap {
		r.metrics.DequeueMisses.Add(1)
		return SlotHandle{}, false
	}

	r.metrics.DequeueOps.Add(1)
	return SlotHandle{Addr: s.addr, Len: s.len, head: head}, true
}

// Complete marks a dequeued unit finished, in place, and returns the flag
// word the slot carried before completion. remaining is the length left
// after processing; it is clamped so a completed length never exceeds the
// submitted one. Handles must be completed in dequeue order.
func (c *Consumer) Complete(h SlotHandle, remaining uint32) uint16 {
	r := c.ring
	s := &r.slots[h.head]

	if remaining > s.len {
		remaining = s.len
	}
	s.len = remaining

	prev := uint16(s.flags.Load())
	// Release store: the length rewrite above becomes visible before the
	// ownership handback. Pairs with the producer's reclaim load.
	s.flags.Store(c.wrap)

	c.usedIdx++
	if c.usedIdx&r.mask == 0 {
		c.wrap ^= DescWrap
	}

	r.metrics.CompleteOps.Add(1)
	return prev
}

// IsIdle reports whether no submission is waiting at the consumption
// cursor. A hint, not a guarantee: a submission may land immediately after.
func (c *Consumer) IsIdle() bool {
	head := c.usedIdx & c.ring.mask
	return c.ring.slots[head].flags.Load()&DescHW == 0
}

// EnableKick asks the producer for a wake once it submits past the
// consumer's current cursor. The watermark store is fenced against the
// re-check so a submission landing in between still produces a wake.
//
// The return value is a hint: true means the ring looks idle right now. A
// caller that intends to sleep must re-check after EnableKick returns true,
// then sleep on its doorbell.
func (c *Consumer) EnableKick() bool {
	c.ring.events.kick.Store(c.usedIdx)
	barrier.Mfence()
	return c.IsIdle()
}

// DisableKick withdraws the wake request. Doing nothing here means at worst
// a spurious wake, and skips a shared-line write on every wake cycle.
func (c *Consumer) DisableKick() {
}

// CallUsed rings the producer's doorbell if the event index rule says one
// is owed for the completions made since the last call. Call it after a
// Complete (or a batch of them). At most one Signal per eligible step.
func (c *Consumer) CallUsed() error {
	r := c.ring
	// Order the completion store against the watermark read below.
	barrier.Mfence()
	if !needEvent(r.events.call.Load(), c.usedIdx, c.calledUsedIdx) {
		r.metrics.CallsSuppressed.Add(1)
		return nil
	}
	c.calledUsedIdx = c.usedIdx
	r.metrics.CallsSent.Add(1)
	if c.call == nil {
		return nil
	}
	return c.call.Signal()
}

// ConsumerState is a diagnostic snapshot of the consumer-owned cursors.
type ConsumerState struct {
	UsedIdx       uint32
	CalledUsedIdx uint32
	Wrap          uint32
}

// State snapshots the consumer cursors. Must be called from the consumer
// goroutine.
func (c *Consumer) State() ConsumerState {
	return ConsumerState{
		UsedIdx:       c.usedIdx,
		CalledUsedIdx: c.calledUsedIdx,
		Wrap:          c.wrap,
	}
}
