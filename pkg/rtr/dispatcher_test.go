package rtr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

func TestDispatcherIssuesInOrder(t *testing.T) {

	channel := newFakeChannel()
	tracker := rtr.NewFlightTracker()
	decisions := make(chan rtr.AckDecision, 10)

	decisions <- rtr.AckDecision{DeliveryTag: 1, Outcome: rtr.AcceptOutcome}
	decisions <- rtr.AckDecision{DeliveryTag: 2, Outcome: rtr.RejectOutcome}
	decisions <- rtr.AckDecision{DeliveryTag: 3, Outcome: rtr.RequeueOutcome}
	close(decisions)

	dispatcher := rtr.NewAckDispatcher(channel, decisions, tracker, nil)
	dispatcher.Run()

	acks := channel.recordedAcks()
	assert.Equal(t, []ackCall{
		{kind: "ack", tag: 1},
		{kind: "nack", tag: 2, requeue: false},
		{kind: "nack", tag: 3, requeue: true},
	}, acks)

	assert.Equal(t, uint64(3), dispatcher.Dispatched())
	assert.Equal(t, uint64(0), dispatcher.Failed())
}

func TestDispatcherContinuesPastBrokerFailure(t *testing.T) {

	channel := newFakeChannel()
	channel.ackErrs[2] = errors.New("channel closed")

	tracker := rtr.NewFlightTracker()
	tracker.Track(&rtr.DeliveredMessage{DeliveryTag: 1})
	tracker.Track(&rtr.DeliveredMessage{DeliveryTag: 2})
	tracker.Track(&rtr.DeliveredMessage{DeliveryTag: 3})

	decisions := make(chan rtr.AckDecision, 10)
	for tag := uint64(1); tag <= 3; tag++ {
		decisions <- rtr.AckDecision{DeliveryTag: tag, Outcome: rtr.AcceptOutcome}
	}
	close(decisions)

	dispatcher := rtr.NewAckDispatcher(channel, decisions, tracker, nil)
	dispatcher.Run()

	assert.Equal(t, uint64(2), dispatcher.Dispatched())
	assert.Equal(t, uint64(1), dispatcher.Failed())

	// Settled either way - the flight concluded even if the broker call failed.
	assert.Equal(t, 0, tracker.Remaining())
}
