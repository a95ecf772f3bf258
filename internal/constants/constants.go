package constants

// Ring geometry constants
const (
	// DefaultRingSize is the default number of descriptor slots per ring
	DefaultRingSize = 256

	// MinRingSize is the smallest supported ring capacity
	MinRingSize = 2

	// MaxRingSize is the largest supported ring capacity.
	// Slot identities are 16-bit, so the slot array cannot exceed 1<<16 entries.
	MaxRingSize = 1 << 16
)

// Memory layout constants
const (
	// SidePadding is the padding inserted between producer-owned and
	// consumer-owned control state so the two sides never share a cache
	// line. 128 bytes covers adjacent-line prefetch on current x86 parts.
	SidePadding = 128
)
