package rtr

import "sync/atomic"

// ReceivedCounter counts messages accepted into the retrieval pipeline and
// signals when the configured message count limit has been reached.
//
// The reached check uses exact equality on the post-increment value rather
// than >=, so the signal fires for exactly one increment even when multiple
// producers race on the counter.
type ReceivedCounter struct {
	count uint64
	limit int64
}

// NewReceivedCounter creates a ReceivedCounter. A limit of zero or below
// means unbounded and the counter never reports reached.
func NewReceivedCounter(limit int64) *ReceivedCounter {
	return &ReceivedCounter{limit: limit}
}

// Increment adds one received message and reports whether this increment hit
// the limit exactly.
func (rc *ReceivedCounter) Increment() bool {
	n := atomic.AddUint64(&rc.count, 1)
	return rc.limit > 0 && int64(n) == rc.limit
}

// Count reads the current received message count.
func (rc *ReceivedCounter) Count() uint64 {
	return atomic.LoadUint64(&rc.count)
}

// Limit yields the configured message count limit (<= 0 means unbounded).
func (rc *ReceivedCounter) Limit() int64 {
	return rc.limit
}
