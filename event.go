package descring

import (
	"sync/atomic"

	"github.com/descring/go-descring/internal/constants"
)

// eventState holds the two wake-request watermarks. kick is written by the
// consumer and read by the producer; call is written by the producer and
// read by the consumer. Each sits on its own cache line so the two writers
// never contend.
type eventState struct {
	kick atomic.Uint32
	_    [constants.SidePadding - 4]byte
	call atomic.Uint32
	_    [constants.SidePadding - 4]byte
}

// needEvent is the event index suppression rule.
//
// next is where the next entry will be written, prev is the value of next
// when a wake was last sent, and event is the watermark the peer published
// when it requested a wake. A wake is owed exactly when event falls in the
// half-open interval (prev, next]; the subtraction form below evaluates
// that in wraparound-safe unsigned arithmetic.
func needEvent(event, next, prev uint32) bool {
	return next-event-1 < next-prev
}
