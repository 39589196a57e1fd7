package rtr

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// AckDispatcher is the sole writer of acknowledgements for the run. It
// issues broker calls strictly in the order decisions were produced, one at
// a time, on the single channel shared with the subscription - delivery tags
// are only meaningful in delivery order on that channel.
type AckDispatcher struct {
	channel   RetrievalChannel
	decisions <-chan AckDecision
	tracker   *FlightTracker
	logger    *zap.Logger

	accepted uint64
	rejected uint64
	requeued uint64
	failed   uint64
}

// NewAckDispatcher creates an AckDispatcher for one retrieval run.
func NewAckDispatcher(
	channel RetrievalChannel,
	decisions <-chan AckDecision,
	tracker *FlightTracker,
	logger *zap.Logger) *AckDispatcher {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &AckDispatcher{
		channel:   channel,
		decisions: decisions,
		tracker:   tracker,
		logger:    logger,
	}
}

// Run consumes decisions until the channel is closed and drained. A broker
// failure on one decision (a closed channel, typically) is logged and the
// dispatcher moves on - one failed acknowledgement must not block the
// acknowledgements already queued behind it.
func (ad *AckDispatcher) Run() {

	for decision := range ad.decisions {

		var err error
		switch decision.Outcome {
		case AcceptOutcome:
			err = ad.channel.Ack(decision.DeliveryTag, false)
		case RejectOutcome:
			err = ad.channel.Nack(decision.DeliveryTag, false, false)
		case RequeueOutcome:
			err = ad.channel.Nack(decision.DeliveryTag, false, true)
		}

		if err != nil {
			atomic.AddUint64(&ad.failed, 1)
			ad.logger.Warn("acknowledgement dispatch failed",
				zap.Uint64("deliveryTag", decision.DeliveryTag),
				zap.String("outcome", decision.Outcome.String()),
				zap.Error(err))
		} else {
			switch decision.Outcome {
			case AcceptOutcome:
				atomic.AddUint64(&ad.accepted, 1)
			case RejectOutcome:
				atomic.AddUint64(&ad.rejected, 1)
			case RequeueOutcome:
				atomic.AddUint64(&ad.requeued, 1)
			}
		}

		ad.tracker.Settle(decision.DeliveryTag)
	}
}

// Dispatched reads how many decisions were issued successfully.
func (ad *AckDispatcher) Dispatched() uint64 {
	return atomic.LoadUint64(&ad.accepted) +
		atomic.LoadUint64(&ad.rejected) +
		atomic.LoadUint64(&ad.requeued)
}

// Failed reads how many decisions failed at the broker.
func (ad *AckDispatcher) Failed() uint64 {
	return atomic.LoadUint64(&ad.failed)
}
