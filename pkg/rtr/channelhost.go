package rtr

import (
	"errors"
	"sync"

	"github.com/streadway/amqp"
)

// ChannelHost is an internal representation of amqp.Channel. Channels used
// for retrieval never enter publisher confirmation mode; the only ordering
// guarantee that matters here is the FIFO of acks written to one channel.
type ChannelHost struct {
	Channel      *amqp.Channel
	ID           uint64
	ConnectionID uint64
	Errors       chan *amqp.Error
	connHost     *ConnectionHost
	chanLock     *sync.Mutex
}

// NewChannelHost creates a ChannelHost wrapper on top of a ConnectionHost.
func NewChannelHost(
	connHost *ConnectionHost,
	id uint64,
	connectionID uint64) (*ChannelHost, error) {

	if connHost.Connection.IsClosed() {
		return nil, errors.New("can't open a channel - connection is already closed")
	}

	chanHost := &ChannelHost{
		ID:           id,
		ConnectionID: connectionID,
		connHost:     connHost,
		chanLock:     &sync.Mutex{},
	}

	err := chanHost.MakeChannel()
	if err != nil {
		return nil, err
	}

	return chanHost, nil
}

// Close allows for manual close of Amqp Channel kept internally.
func (ch *ChannelHost) Close() {
	_ = ch.Channel.Close()
}

// MakeChannel tries to create (or re-create) the channel from the ConnectionHost its attached to.
func (ch *ChannelHost) MakeChannel() (err error) {
	ch.chanLock.Lock()
	defer ch.chanLock.Unlock()

	ch.Channel, err = ch.connHost.Connection.Channel()
	if err != nil {
		return err
	}

	ch.Errors = make(chan *amqp.Error, 100)
	ch.Channel.NotifyClose(ch.Errors)

	return nil
}

// FlushErrors removes any channel errors pending processing. Used after a
// channel is rebuilt so stale closures don't flag the fresh channel.
func (ch *ChannelHost) FlushErrors() {

	for {
		select {
		case <-ch.Errors:
		default:
			return
		}
	}
}

// Erred reports whether the channel has received a close notification without
// draining the error buffer permanently.
func (ch *ChannelHost) Erred() bool {

	select {
	case amqpErr := <-ch.Errors:
		return amqpErr != nil
	default:
		return false
	}
}

// PauseForFlowControl allows you to wait and sleep while receiving flow control messages.
func (ch *ChannelHost) PauseForFlowControl() {

	ch.connHost.PauseOnFlowControl()
}
