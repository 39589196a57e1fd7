package rtr

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DeliveryBridge is the producer side of the pipeline: it registers the push
// subscription and forwards each broker delivery into the DeliveryBuffer.
// Deliveries for one subscription arrive sequentially on a single dispatch
// goroutine, so the bridge itself never needs a lock.
type DeliveryBridge struct {
	channel     RetrievalChannel
	queueName   string
	consumerTag string
	prefetch    int

	buffer      *DeliveryBuffer
	counter     *ReceivedCounter
	coordinator *CancellationCoordinator
	tracker     *FlightTracker
	logger      *zap.Logger

	wg sync.WaitGroup
}

// NewDeliveryBridge creates a DeliveryBridge for one retrieval run.
func NewDeliveryBridge(
	channel RetrievalChannel,
	queueName string,
	consumerTag string,
	prefetch int,
	buffer *DeliveryBuffer,
	counter *ReceivedCounter,
	coordinator *CancellationCoordinator,
	tracker *FlightTracker,
	logger *zap.Logger) *DeliveryBridge {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryBridge{
		channel:     channel,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		buffer:      buffer,
		counter:     counter,
		coordinator: coordinator,
		tracker:     tracker,
		logger:      logger,
	}
}

// Start applies the resolved QoS and registers the subscription. Deliveries
// begin flowing into the buffer on a background goroutine.
func (db *DeliveryBridge) Start() error {

	if db.prefetch > 0 {
		if err := db.channel.Qos(db.prefetch, 0, false); err != nil {
			return fmt.Errorf("setting qos for queue %q: %w", db.queueName, err)
		}
	}

	deliveries, err := db.channel.Consume(db.queueName, db.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("subscribing to queue %q: %w", db.queueName, err)
	}

	db.wg.Add(1)
	go db.forwardDeliveries(deliveries)

	return nil
}

func (db *DeliveryBridge) forwardDeliveries(deliveries <-chan amqp.Delivery) {
	defer db.wg.Done()

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				// The broker closed the subscription (connection loss or a
				// server-side cancel). No more deliveries can arrive, so wind
				// the run down and let the pipeline drain to end-of-stream.
				db.coordinator.Shutdown(false)
				return
			}

			// A delivery racing the shutdown trigger is dropped without
			// acknowledgement - the broker redelivers it after the channel
			// closes, rather than this run expediting it through a pipeline
			// that is already draining.
			if db.coordinator.Signaled() {
				continue
			}

			msg := NewDeliveredMessage(db.queueName, delivery)
			if err := db.buffer.Put(msg); err != nil {
				continue
			}

			db.tracker.Track(msg)

			if db.counter.Increment() {
				db.coordinator.Shutdown(false)
			}

		case <-db.coordinator.Done():
			return
		}
	}
}

// Wait pauses until the forwarding goroutine has terminated.
func (db *DeliveryBridge) Wait() {
	db.wg.Wait()
}
