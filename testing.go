package descring

import (
	"context"

	"github.com/descring/go-descring/internal/notify"
)

// Loopback wires a producer and a consumer to one ring over in-process
// doorbells. It is meant for tests and examples of code built on the ring:
// the producer side drives Submit/Reclaim, and ServeEcho runs a reference
// consumer loop that completes everything it dequeues.
type Loopback struct {
	Ring     *Ring
	Producer *Producer
	Consumer *Consumer

	kick *notify.Chan
	call *notify.Chan
}

// NewLoopback creates a ring of the given capacity with both sides
// attached.
func NewLoopback(capacity int) (*Loopback, error) {
	r, err := New(capacity, nil)
	if err != nil {
		return nil, err
	}
	l := &Loopback{
		Ring: r,
		kick: notify.NewChan(),
		call: notify.NewChan(),
	}
	l.Producer = r.NewProducer(l.kick)
	l.Consumer = r.NewConsumer(l.call)
	return l, nil
}

// WaitKick blocks until the producer has rung the consumer's doorbell.
// Wakes may be spurious relative to ring state; re-check after waking.
func (l *Loopback) WaitKick(ctx context.Context) error {
	return l.kick.Wait(ctx)
}

// WaitCall blocks until the consumer has rung the producer's doorbell.
// Wakes may be spurious relative to ring state; re-check after waking.
func (l *Loopback) WaitCall(ctx context.Context) error {
	return l.call.Wait(ctx)
}

// ServeEcho runs the consumer loop until the context is cancelled: dequeue,
// complete with the length reduced by decrement (floored at zero), and ring
// the producer's doorbell when one is owed. Sleeps on the kick doorbell
// when idle, using the request-then-recheck discipline.
//
// Run it on its own goroutine; it returns the context's error on shutdown.
func (l *Loopback) ServeEcho(ctx context.Context, decrement uint32) error {
	c := l.Consumer
	for {
		h, ok := c.Dequeue()
		if !ok {
			if !c.EnableKick() {
				// A submission landed while the watermark was
				// being published.
				continue
			}
			if err := l.kick.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		var remaining uint32
		if h.Len > decrement {
			remaining = h.Len - decrement
		}
		c.Complete(h, remaining)
		if err := c.CallUsed(); err != nil {
			return WrapError("CALL", err)
		}
	}
}
