package descring

import (
	"github.com/descring/go-descring/internal/barrier"
	"github.com/descring/go-descring/internal/constants"
)

// pendingEntry is one side table record: the opaque pair the producer needs
// back on reclaim. The consumer rewrites len and flags in place, so the
// slot itself cannot carry these; they are keyed by the slot's stable
// identity instead. The table is written and cleared only by the producer.
type pendingEntry struct {
	buf      any
	userData any
}

// Completion is one reclaimed unit of work: the opaque pair given to Submit
// plus the length and flag word left behind by the consumer.
type Completion struct {
	Buf      any
	UserData any
	Len      uint32
	Flags    uint16
}

// Producer is the submitting side of a ring. All methods must be called
// from a single goroutine (or otherwise externally serialized); none of
// them block.
type Producer struct {
	ring *Ring
	kick Notifier

	// availIdx is the free-running submission counter; wrap is the
	// generation value for the lap availIdx currently sits in.
	availIdx uint32
	wrap     uint32

	// lastUsedIdx trails availIdx through completed slots; usedWrap is
	// the generation a completion at that cursor must carry.
	lastUsedIdx uint32
	usedWrap    uint32

	numFree        uint32
	kickedAvailIdx uint32

	pending []pendingEntry

	_ [constants.SidePadding]byte
}

// NewProducer attaches the producing side to the ring. kick is the doorbell
// rung to wake the consumer; nil means pure polling (no wake is ever sent,
// suppression bookkeeping still runs).
//
// SPSC precondition: at most one Producer per ring, ever.
func (r *Ring) NewProducer(kick Notifier) *Producer {
	return &Producer{
		ring:           r,
		kick:           kick,
		kickedAvailIdx: ^uint32(0),
		numFree:        r.size,
		pending:        make([]pendingEntry, r.size),
	}
}

// Submit publishes one unit of work. addr and length go into the descriptor
// itself and are all the consumer ever sees; buf and userData are recorded
// in the side table and handed back verbatim by Reclaim.
//
// Returns ErrRingFull, with no state mutated, when every slot is
// outstanding.
func (p *Producer) Submit(addr uint64, length uint32, buf, userData any) error {
	r := p.ring
	if p.numFree == 0 {
		r.metrics.RingFull.Add(1)
		return ErrRingFull
	}
	p.numFree--

	head := p.availIdx & r.mask
	p.availIdx++

	s := &r.slots[head]
	// Plain writes: the consumer cannot observe the slot until the flag
	// store below.
	s.addr = addr
	s.len = length

	idx := s.index & uint16(r.mask)
	p.pending[idx].buf = buf
	p.pending[idx].userData = userData

	// Publication point. The atomic store is a release: everything above
	// is visible to whoever acquires this flag value.
	s.flags.Store(DescHW | p.wrap)

	if p.availIdx&r.mask == 0 {
		p.wrap ^= DescWrap
	}

	r.metrics.SubmitOps.Add(1)
	return nil
}

// Reclaim retrieves one completed unit, if any. The bool result is false on
// a normal poll miss; nothing is mutated in that case.
func (p *Producer) Reclaim() (Completion, bool) {
	r := p.ring
	head := p.lastUsedIdx & r.mask
	s := &r.slots[head]

	// Acquire load, pairing with the consumer's completion store: once we
	// see DescHW clear with our generation, the rewritten length is
	// visible too.
	flags := s.flags.Load()
	if flags&DescHW != 0 || flags&DescWrap != p.usedWrap {
		r.metrics.ReclaimMisses.Add(1)
		return Completion{}, false
	}

	idx := s.index & uint16(r.mask)
	ent := &p.pending[idx]
	c := Completion{
		Buf:      ent.buf,
		UserData: ent.userData,
		Len:      s.len,
		Flags:    uint16(flags),
	}
	ent.buf = nil
	ent.userData = nil

	p.numFree++
	p.lastUsedIdx++
	if p.lastUsedIdx&r.mask == 0 {
		p.usedWrap ^= DescWrap
	}

	r.metrics.ReclaimOps.Add(1)
	return c, true
}

// usedEmpty reports whether the completion at the trailing cursor has not
// arrived yet.
func (p *Producer) usedEmpty() bool {
	head := p.lastUsedIdx & p.ring.mask
	flags := p.ring.slots[head].flags.Load()
	return flags&DescHW != 0 || flags&DescWrap != p.usedWrap
}

// EnableCall asks the consumer for a wake once it completes past the
// producer's current reclaim cursor. The watermark store is fenced against
// the re-check so a completion landing in between still produces a wake.
//
// The return value is a hint: true means no completion is visible right
// now. A caller that intends to sleep must re-check after EnableCall
// returns true, then sleep on its doorbell.
func (p *Producer) EnableCall() bool {
	p.ring.events.call.Store(p.lastUsedIdx)
	barrier.Mfence()
	return p.usedEmpty()
}

// DisableCall withdraws the wake request. Doing nothing here means at worst
// a spurious wake, and skips a shared-line write on every wake cycle.
func (p *Producer) DisableCall() {
}

// KickAvailable rings the consumer's doorbell if the event index rule says
// one is owed for the submissions made since the last kick. Call it after a
// Submit (or a batch of them). At most one Signal per eligible step.
func (p *Producer) KickAvailable() error {
	r := p.ring
	// Order the flag publication against the watermark read below.
	barrier.Mfence()
	if !needEvent(r.events.kick.Load(), p.availIdx, p.kickedAvailIdx) {
		r.metrics.KicksSuppressed.Add(1)
		return nil
	}
	p.kickedAvailIdx = p.availIdx
	r.metrics.KicksSent.Add(1)
	if p.kick == nil {
		return nil
	}
	return p.kick.Signal()
}

// NumFree returns the number of slots available for Submit.
func (p *Producer) NumFree() int {
	return int(p.numFree)
}

// Outstanding returns the number of submitted, not yet reclaimed slots.
func (p *Producer) Outstanding() int {
	return int(p.ring.size - p.numFree)
}

// ProducerState is a diagnostic snapshot of the producer-owned cursors.
type ProducerState struct {
	AvailIdx       uint32
	LastUsedIdx    uint32
	NumFree        uint32
	KickedAvailIdx uint32
	Wrap           uint32
	UsedWrap       uint32
}

// State snapshots the producer cursors. Must be called from the producer
// goroutine.
func (p *Producer) State() ProducerState {
	return ProducerState{
		AvailIdx:       p.availIdx,
		LastUsedIdx:    p.lastUsedIdx,
		NumFree:        p.numFree,
		KickedAvailIdx: p.kickedAvailIdx,
		Wrap:           p.wrap,
		UsedWrap:       p.usedWrap,
	}
}
