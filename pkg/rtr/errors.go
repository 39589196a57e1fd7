package rtr

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueNotFound is returned when the passive queue check reports the
	// queue missing. You can check for this error with errors.Is.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrPrefetchConflict is returned when an explicit nonzero prefetch is
	// combined with the requeue ack mode - bounded prefetch with immediate
	// requeue livelocks on the same redelivered messages.
	ErrPrefetchConflict = errors.New("explicit prefetch can't be combined with requeue ack mode")

	// ErrBufferClosed is returned when a delivery is offered to a buffer that
	// has already been closed for writing.
	ErrBufferClosed = errors.New("delivery buffer closed for writing")
)

// QueueNotFoundError identifies which queue failed the passive check.
type QueueNotFoundError struct {
	QueueName string
}

// Error allows you to quickly log the QueueNotFoundError as a string.
func (e *QueueNotFoundError) Error() string {
	return fmt.Sprintf("queue %q not found", e.QueueName)
}

// Unwrap ties QueueNotFoundError to the ErrQueueNotFound sentinel.
func (e *QueueNotFoundError) Unwrap() error {
	return ErrQueueNotFound
}
