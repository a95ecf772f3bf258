package descring

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	ErrCodeRingFull ErrorCode = "ring full"
	ErrCodeCapacity ErrorCode = "capacity not a power of two"
	ErrCodeNotify   ErrorCode = "notify failed"
)

// Error represents a structured ring error with operation context
type Error struct {
	Op    string        // Operation that failed (e.g., "NEW_RING", "SUBMIT")
	Code  ErrorCode     // High-level error category
	Errno syscall.Errno // Underlying errno (0 if not applicable)
	Msg   string        // Human-readable message
	Inner error         // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("descring: %s (%s)", msg, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("descring: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches structured errors by code, so errors.Is(err, ErrRingFull) holds
// for any error carrying the ring-full code
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// Sentinel errors. ErrRingFull is preallocated because Submit returns it on
// the hot path; matching with errors.Is works on the code, not the pointer.
var (
	ErrRingFull = &Error{Code: ErrCodeRingFull, Msg: "ring full"}
	ErrCapacity = &Error{Code: ErrCodeCapacity}
)

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// WrapError wraps an existing error with ring context. Used around the
// notify layer, whose failures surface as syscall errors.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	// Already structured: keep the code, update the operation
	if de, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			Code:  de.Code,
			Errno: de.Errno,
			Msg:   de.Msg,
			Inner: de.Inner,
		}
	}

	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{
			Op:    op,
			Code:  ErrCodeNotify,
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  ErrCodeNotify,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsRingFull reports whether err is the recoverable ring-full condition.
// Callers should back off and retry after a Reclaim frees a slot.
func IsRingFull(err error) bool {
	return IsCode(err, ErrCodeRingFull)
}
