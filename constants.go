package descring

import "github.com/descring/go-descring/internal/constants"

// Re-export constants for public API
const (
	DefaultRingSize = constants.DefaultRingSize
	MinRingSize     = constants.MinRingSize
	MaxRingSize     = constants.MaxRingSize
)
