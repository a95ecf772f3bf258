// Package notify provides the wake primitives used to tell the peer side of
// a ring that progress has been made. The ring core only ever calls Signal;
// waiting is the caller's business and may block.
package notify

import "context"

// Doorbell is a one-direction wake channel. Signal never blocks; a signal
// delivered while the waiter is not waiting is coalesced, not queued.
type Doorbell interface {
	// Signal wakes the waiter if one is (or will be) waiting.
	Signal() error

	// Wait blocks until the doorbell has been signalled since the last
	// Wait, or the context is done.
	Wait(ctx context.Context) error

	// Close releases the doorbell's resources. Signal and Wait must not
	// be called after Close.
	Close() error
}

// Chan is an in-process Doorbell backed by a buffered channel. It is the
// portable default and the one used by test harnesses.
type Chan struct {
	ch chan struct{}
}

// NewChan creates an in-process doorbell.
func NewChan() *Chan {
	return &Chan{ch: make(chan struct{}, 1)}
}

// Signal posts a wake. Multiple signals between waits coalesce into one.
func (c *Chan) Signal() error {
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks for a signal or context cancellation.
func (c *Chan) Wait(ctx context.Context) error {
	select {
	case <-c.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Doorbell. A Chan holds no OS resources.
func (c *Chan) Close() error {
	return nil
}
