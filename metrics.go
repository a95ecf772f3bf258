package descring

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational statistics for one ring. All counters are
// plain atomic adds so both sides can bump them without coordination; the
// producer and consumer touch disjoint counters, so there is no cross-side
// contention in steady state.
type Metrics struct {
	// Producer-side counters
	SubmitOps       atomic.Uint64 // Successful submissions
	RingFull        atomic.Uint64 // Submissions rejected with ErrRingFull
	ReclaimOps      atomic.Uint64 // Successful reclaims
	ReclaimMisses   atomic.Uint64 // Reclaim polls that found nothing
	KicksSent       atomic.Uint64 // Doorbell signals sent to the consumer
	KicksSuppressed atomic.Uint64 // Kicks elided by the event index rule

	// Consumer-side counters
	DequeueOps      atomic.Uint64 // Successful dequeues
	DequeueMisses   atomic.Uint64 // Dequeue polls that found nothing
	CompleteOps     atomic.Uint64 // Completions
	CallsSent       atomic.Uint64 // Doorbell signals sent to the producer
	CallsSuppressed atomic.Uint64 // Calls elided by the event index rule

	// Lifecycle
	StartTime atomic.Int64 // Creation timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// MetricsSnapshot is a point-in-time copy of the counters with derived
// rates filled in.
type MetricsSnapshot struct {
	SubmitOps       uint64
	RingFull        uint64
	ReclaimOps      uint64
	ReclaimMisses   uint64
	DequeueOps      uint64
	DequeueMisses   uint64
	CompleteOps     uint64
	KicksSent       uint64
	KicksSuppressed uint64
	CallsSent       uint64
	CallsSuppressed uint64

	Outstanding uint64 // submitted but not yet reclaimed

	KickSuppressionRate float64 // fraction of kick decisions that were elided
	CallSuppressionRate float64 // fraction of call decisions that were elided
	SubmitsPerSec       float64
	Uptime              time.Duration
}

// Snapshot returns a consistent-enough copy of all counters. Individual
// loads are atomic; the set as a whole is racy by nature and meant for
// reporting, not invariant checks.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		SubmitOps:       m.SubmitOps.Load(),
		RingFull:        m.RingFull.Load(),
		ReclaimOps:      m.ReclaimOps.Load(),
		ReclaimMisses:   m.ReclaimMisses.Load(),
		DequeueOps:      m.DequeueOps.Load(),
		DequeueMisses:   m.DequeueMisses.Load(),
		CompleteOps:     m.CompleteOps.Load(),
		KicksSent:       m.KicksSent.Load(),
		KicksSuppressed: m.KicksSuppressed.Load(),
		CallsSent:       m.CallsSent.Load(),
		CallsSuppressed: m.CallsSuppressed.Load(),
	}

	if s.SubmitOps >= s.ReclaimOps {
		s.Outstanding = s.SubmitOps - s.ReclaimOps
	}

	if kicks := s.KicksSent + s.KicksSuppressed; kicks > 0 {
		s.KickSuppressionRate = float64(s.KicksSuppressed) / float64(kicks)
	}
	if calls := s.CallsSent + s.CallsSuppressed; calls > 0 {
		s.CallSuppressionRate = float64(s.CallsSuppressed) / float64(calls)
	}

	s.Uptime = time.Since(time.Unix(0, m.StartTime.Load()))
	if secs := s.Uptime.Seconds(); secs > 0 {
		s.SubmitsPerSec = float64(s.SubmitOps) / secs
	}

	return s
}

// Reset zeroes all counters and restarts the clock
func (m *Metrics) Reset() {
	m.SubmitOps.Store(0)
	m.RingFull.Store(0)
	m.ReclaimOps.Store(0)
	m.ReclaimMisses.Store(0)
	m.DequeueOps.Store(0)
	m.DequeueMisses.Store(0)
	m.CompleteOps.Store(0)
	m.KicksSent.Store(0)
	m.KicksSuppressed.Store(0)
	m.CallsSent.Store(0)
	m.CallsSuppressed.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}
