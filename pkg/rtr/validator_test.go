package rtr_test

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

func TestValidateQueueSnapshot(t *testing.T) {

	channel := newFakeChannel()
	channel.queue = amqp.Queue{Messages: 12, Consumers: 2}

	snapshot, err := rtr.ValidateQueue(channel, "TestQueue")

	assert.NoError(t, err)
	assert.Equal(t, "TestQueue", snapshot.QueueName)
	assert.Equal(t, 12, snapshot.MessageCount)
	assert.Equal(t, 2, snapshot.ConsumerCount)
}

func TestValidateQueueNotFound(t *testing.T) {

	channel := newFakeChannel()
	channel.queueErr = &amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND - no queue 'MissingQueue'"}

	snapshot, err := rtr.ValidateQueue(channel, "MissingQueue")

	assert.Nil(t, snapshot)
	assert.True(t, errors.Is(err, rtr.ErrQueueNotFound))

	var notFound *rtr.QueueNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, "MissingQueue", notFound.QueueName)
}

func TestValidateQueueOtherBrokerError(t *testing.T) {

	channel := newFakeChannel()
	channel.queueErr = &amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"}

	snapshot, err := rtr.ValidateQueue(channel, "LockedQueue")

	assert.Nil(t, snapshot)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, rtr.ErrQueueNotFound))
}
