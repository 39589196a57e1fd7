package rtr

import (
	"errors"
	"fmt"

	"github.com/streadway/amqp"
)

// ValidateQueue performs a passive, non-creating existence check and returns
// a point-in-time QueueSnapshot. A missing queue is terminal for the run: the
// caller must abort before any subscription is registered.
//
// A failed passive declare closes the channel server-side, so validate on a
// transient channel rather than the channel the run will consume on.
func ValidateQueue(channel RetrievalChannel, queueName string) (*QueueSnapshot, error) {

	queueInfo, err := channel.QueueDeclarePassive(queueName, false, false, false, false, nil)
	if err != nil {
		var amqpErr *amqp.Error
		if errors.As(err, &amqpErr) && amqpErr.Code == amqp.NotFound {
			return nil, &QueueNotFoundError{QueueName: queueName}
		}

		return nil, fmt.Errorf("passive check of queue %q: %w", queueName, err)
	}

	return &QueueSnapshot{
		QueueName:     queueInfo.Name,
		MessageCount:  queueInfo.Messages,
		ConsumerCount: queueInfo.Consumers,
	}, nil
}
