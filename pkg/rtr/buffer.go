package rtr

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// DeliveryBuffer is the unbounded handoff between the broker-driven
// DeliveryBridge and the MessagePipeline. Put never blocks - the bridge runs
// on the protocol client's dispatch goroutine and stalling it can deadlock
// the whole connection.
//
// The buffer closes for writing, not for reading: after CloseWrites the
// consumer still drains everything already enqueued before observing
// end-of-stream.
type DeliveryBuffer struct {
	messages     *queue.Queue
	closed       int32
	pollInterval time.Duration
}

// NewDeliveryBuffer creates a DeliveryBuffer with an initial capacity hint.
func NewDeliveryBuffer(hint int64, pollInterval time.Duration) *DeliveryBuffer {

	if hint <= 0 {
		hint = 100
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}

	return &DeliveryBuffer{
		messages:     queue.New(hint),
		pollInterval: pollInterval,
	}
}

// Put enqueues a message without blocking. Returns ErrBufferClosed once the
// buffer has been closed for writing.
func (db *DeliveryBuffer) Put(msg *DeliveredMessage) error {

	if db.Closed() {
		return ErrBufferClosed
	}

	return db.messages.Put(msg)
}

// CloseWrites stops further Puts so the consumer can drain and terminate.
func (db *DeliveryBuffer) CloseWrites() {
	atomic.StoreInt32(&db.closed, 1)
}

// Closed reports whether the buffer no longer accepts writes.
func (db *DeliveryBuffer) Closed() bool {
	return atomic.LoadInt32(&db.closed) == 1
}

// Next yields the next message in FIFO order, pausing while the buffer is
// empty. It returns false only when the buffer is closed for writing and
// fully drained.
func (db *DeliveryBuffer) Next() (*DeliveredMessage, bool) {

	for {
		items, err := db.messages.Poll(1, db.pollInterval)
		if err != nil {
			if errors.Is(err, queue.ErrDisposed) {
				return nil, false
			}

			// Poll timed out on an empty buffer.
			if db.Closed() && db.messages.Empty() {
				return nil, false
			}
			continue
		}

		msg, ok := items[0].(*DeliveredMessage)
		if !ok {
			continue
		}

		return msg, true
	}
}

// Len reads how many messages are waiting to be drained.
func (db *DeliveryBuffer) Len() int64 {
	return db.messages.Len()
}

// Dispose releases the underlying queue. Anything not yet drained is lost,
// so only call this after the consumer has terminated.
func (db *DeliveryBuffer) Dispose() {
	atomic.StoreInt32(&db.closed, 1)
	db.messages.Dispose()
}
