package rtr

import (
	"time"

	"github.com/streadway/amqp"
)

// AckOutcome is the closed set of acknowledgement outcomes a retrieved
// message can resolve to.
type AckOutcome int

const (
	// AcceptOutcome acknowledges the message, removing it from the queue.
	AcceptOutcome AckOutcome = iota

	// RejectOutcome negatively acknowledges without requeueing, discarding the message.
	RejectOutcome

	// RequeueOutcome negatively acknowledges with requeue, releasing the message back to the queue.
	RequeueOutcome
)

// String allows you to quickly log an AckOutcome.
func (o AckOutcome) String() string {
	switch o {
	case AcceptOutcome:
		return "accept"
	case RejectOutcome:
		return "reject"
	case RequeueOutcome:
		return "requeue"
	default:
		return "unknown"
	}
}

// DeliveredMessage is an immutable snapshot of a single broker delivery.
// It is created by the DeliveryBridge and owned by the MessagePipeline until
// an AckDecision is produced for its DeliveryTag.
type DeliveredMessage struct {
	Exchange    string
	RoutingKey  string
	QueueName   string
	DeliveryTag uint64
	Redelivered bool
	Body        []byte

	// Properties
	ContentType     string
	ContentEncoding string
	CorrelationID   string
	MessageID       string
	AppID           string
	Type            string
	Headers         amqp.Table
	PublishDate     string
}

// NewDeliveredMessage creates a DeliveredMessage from a raw amqp.Delivery.
func NewDeliveredMessage(queueName string, delivery amqp.Delivery) *DeliveredMessage {

	return &DeliveredMessage{
		Exchange:        delivery.Exchange,
		RoutingKey:      delivery.RoutingKey,
		QueueName:       queueName,
		DeliveryTag:     delivery.DeliveryTag,
		Redelivered:     delivery.Redelivered,
		Body:            delivery.Body,
		ContentType:     delivery.ContentType,
		ContentEncoding: delivery.ContentEncoding,
		CorrelationID:   delivery.CorrelationId,
		MessageID:       delivery.MessageId,
		AppID:           delivery.AppId,
		Type:            delivery.Type,
		Headers:         delivery.Headers,
		PublishDate:     timestampFromTime(delivery.Timestamp),
	}
}

func timestampFromTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// AckDecision is the per-message acknowledgement verdict produced by the
// MessagePipeline and dispatched, in order, by the AckDispatcher.
type AckDecision struct {
	DeliveryTag uint64
	Outcome     AckOutcome
}

// QueueSnapshot is a point-in-time passive read of a queue, never updated
// after creation.
type QueueSnapshot struct {
	QueueName     string
	MessageCount  int
	ConsumerCount int
}
