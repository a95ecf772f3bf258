//go:build !linux

package notify

import (
	"context"
	"errors"
)

// Eventfd is only available on Linux. The stub keeps the type available so
// callers can compile on other platforms and fall back to Chan at runtime.
type Eventfd struct{}

var errUnsupported = errors.New("notify: eventfd not supported on this platform")

func NewEventfd() (*Eventfd, error) {
	return nil, errUnsupported
}

func (e *Eventfd) Signal() error {
	return errUnsupported
}

func (e *Eventfd) Wait(ctx context.Context) error {
	return errUnsupported
}

func (e *Eventfd) Close() error {
	return nil
}
