package rtr_test

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

// ackCall records one acknowledgement issued against the fake channel.
type ackCall struct {
	kind    string // "ack" or "nack"
	tag     uint64
	requeue bool
}

// fakeChannel is a scripted RetrievalChannel. Deliveries are pushed through
// an internal channel the way the protocol client dispatches them, and every
// acknowledgement is recorded in issue order.
type fakeChannel struct {
	lock sync.Mutex

	deliveries chan amqp.Delivery
	cancelled  bool
	closed     bool

	prefetch int
	queue    amqp.Queue
	queueErr error

	acks    []ackCall
	ackErrs map[uint64]error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 100),
		queue:      amqp.Queue{Name: "FakeQueue"},
		ackErrs:    make(map[uint64]error),
	}
}

func (fc *fakeChannel) deliver(tag uint64, body string) {
	fc.deliveries <- amqp.Delivery{
		DeliveryTag: tag,
		Exchange:    "FakeExchange",
		RoutingKey:  "fake.key",
		Body:        []byte(body),
	}
}

func (fc *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.prefetch = prefetchCount
	return nil
}

func (fc *fakeChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return fc.deliveries, nil
}

func (fc *fakeChannel) Cancel(_ string, _ bool) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.cancelled = true
	if !fc.closed {
		fc.closed = true
		close(fc.deliveries)
	}
	return nil
}

// closeDeliveries simulates the broker tearing the subscription down on its
// own, without a client-side cancel.
func (fc *fakeChannel) closeDeliveries() {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if !fc.closed {
		fc.closed = true
		close(fc.deliveries)
	}
}

func (fc *fakeChannel) Ack(tag uint64, _ bool) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if err, ok := fc.ackErrs[tag]; ok {
		return err
	}

	fc.acks = append(fc.acks, ackCall{kind: "ack", tag: tag})
	return nil
}

func (fc *fakeChannel) Nack(tag uint64, _, requeue bool) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if err, ok := fc.ackErrs[tag]; ok {
		return err
	}

	fc.acks = append(fc.acks, ackCall{kind: "nack", tag: tag, requeue: requeue})
	return nil
}

func (fc *fakeChannel) QueueDeclarePassive(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if fc.queueErr != nil {
		return amqp.Queue{}, fc.queueErr
	}

	queue := fc.queue
	queue.Name = name
	return queue, nil
}

func (fc *fakeChannel) Close() error {
	return nil
}

func (fc *fakeChannel) recordedAcks() []ackCall {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	out := make([]ackCall, len(fc.acks))
	copy(out, fc.acks)
	return out
}

func (fc *fakeChannel) recordedPrefetch() int {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	return fc.prefetch
}

func (fc *fakeChannel) wasCancelled() bool {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	return fc.cancelled
}

// failingSink fails on the Nth write (1-based), passing everything else
// through to an in-memory count.
type failingSink struct {
	lock    sync.Mutex
	failOn  int
	written int
}

func (fs *failingSink) Write(msg *rtr.DeliveredMessage) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.written++
	if fs.written == fs.failOn {
		return fmt.Errorf("sink write %d refused", fs.written)
	}
	return nil
}

func (fs *failingSink) writes() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	return fs.written
}

// collectingSink remembers every message body it receives.
type collectingSink struct {
	lock   sync.Mutex
	bodies []string
}

func (cs *collectingSink) Write(msg *rtr.DeliveredMessage) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.bodies = append(cs.bodies, string(msg.Body))
	return nil
}

func (cs *collectingSink) received() []string {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	out := make([]string, len(cs.bodies))
	copy(out, cs.bodies)
	return out
}
