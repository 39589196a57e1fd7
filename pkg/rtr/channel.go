package rtr

import "github.com/streadway/amqp"

// RetrievalChannel is the slice of amqp.Channel the retrieval pipeline relies
// on. *amqp.Channel satisfies it directly; tests substitute a scripted fake.
//
// Delivery tags are only meaningful in delivery order on the channel that
// produced them, so the subscription and every acknowledgement for it must go
// through the same RetrievalChannel.
type RetrievalChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Close() error
}
