//go:build linux

package notify

import (
	"context"
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Eventfd is a Doorbell backed by a Linux eventfd. It is the primitive to
// use when producer and consumer live on separate threads or processes and
// the waiter wants to sleep in the kernel instead of spinning.
type Eventfd struct {
	fd int
}

// NewEventfd creates an eventfd-backed doorbell.
func NewEventfd() (*Eventfd, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Eventfd{fd: fd}, nil
}

// Signal increments the eventfd counter, waking any reader. Pending signals
// coalesce into the counter; the kernel never queues more than one wake.
func (e *Eventfd) Signal() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(e.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Wait blocks until the eventfd is signalled or the context is done.
// Cancellation is polled; a cancelled context is noticed within pollInterval.
func (e *Eventfd) Wait(ctx context.Context) error {
	const pollInterval = 100 // milliseconds
	fds := []unix.PollFd{{Fd: int32(e.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds[0].Revents = 0
		n, err := unix.Poll(fds, pollInterval)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		var buf [8]byte
		if _, err := unix.Read(e.fd, buf[:]); err != nil && err != unix.EAGAIN {
			return err
		}
		return nil
	}
}

// Close releases the eventfd.
func (e *Eventfd) Close() error {
	return unix.Close(e.fd)
}
