package rtr

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ConnectionPool houses the pool of RabbitMQ connections. Retrieval channels
// are always created fresh from a pooled connection rather than cached, so a
// channel poisoned by a failed passive declare never gets reused.
type ConnectionPool struct {
	Config               PoolConfig
	uri                  string
	heartbeatInterval    time.Duration
	connectionTimeout    time.Duration
	connections          *queue.Queue
	connectionID         uint64
	channelID            uint64
	poolRWLock           *sync.RWMutex
	flaggedConnections   map[uint64]bool
	sleepOnErrorInterval time.Duration
	logger               *zap.Logger
}

// NewConnectionPool creates hosting structure for the ConnectionPool.
func NewConnectionPool(config *PoolConfig, logger *zap.Logger) (*ConnectionPool, error) {

	if config.Heartbeat == 0 || config.ConnectionTimeout == 0 {
		return nil, errors.New("connectionpool heartbeat or connectiontimeout can't be 0")
	}

	if config.MaxConnectionCount == 0 {
		return nil, errors.New("connectionpool maxconnectioncount can't be 0")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	cp := &ConnectionPool{
		Config:               *config,
		uri:                  config.URI,
		heartbeatInterval:    time.Duration(config.Heartbeat) * time.Second,
		connectionTimeout:    time.Duration(config.ConnectionTimeout) * time.Second,
		connections:          queue.New(int64(config.MaxConnectionCount)), // possible overflow error
		poolRWLock:           &sync.RWMutex{},
		flaggedConnections:   make(map[uint64]bool),
		sleepOnErrorInterval: time.Duration(config.SleepOnErrorInterval) * time.Millisecond,
		logger:               logger,
	}

	if ok := cp.initializeConnections(); !ok {
		return nil, errors.New("initialization failed during connection creation")
	}

	return cp, nil
}

func (cp *ConnectionPool) initializeConnections() bool {

	cp.connectionID = 0
	cp.connections = queue.New(int64(cp.Config.MaxConnectionCount))

	for i := uint64(0); i < cp.Config.MaxConnectionCount; i++ {

		connectionHost, err := NewConnectionHost(
			cp.uri,
			cp.Config.ApplicationName+"-"+strconv.FormatUint(cp.connectionID, 10),
			cp.connectionID,
			cp.heartbeatInterval,
			cp.connectionTimeout,
			cp.Config.TLSConfig,
			cp.logger)

		if err != nil {
			cp.handleError(err)
			return false
		}

		if err = cp.connections.Put(connectionHost); err != nil {
			cp.handleError(err)
			return false
		}

		cp.connectionID++
	}

	return true
}

// GetConnection gets a connection based on whats in the ConnectionPool (blocking under bad network conditions).
// Flowcontrol (blocking) or transient network outages will pause here until cleared.
// Uses the SleepOnErrorInterval to pause between retries.
func (cp *ConnectionPool) GetConnection() (*ConnectionHost, error) {

	connHost, err := cp.getConnectionFromPool()
	if err != nil { // errors on bad data in the queue
		cp.handleError(err)
		return nil, err
	}

	cp.verifyHealthyConnection(connHost)

	return connHost, nil
}

func (cp *ConnectionPool) getConnectionFromPool() (*ConnectionHost, error) {

	// Pull from the queue.
	// Pauses here indefinitely if the queue is empty.
	structs, err := cp.connections.Get(1)
	if err != nil {
		return nil, err
	}

	connHost, ok := structs[0].(*ConnectionHost)
	if !ok {
		return nil, errors.New("invalid struct type found in ConnectionPool queue")
	}

	return connHost, nil
}

func (cp *ConnectionPool) verifyHealthyConnection(connHost *ConnectionHost) {

	healthy := true
	select {
	case <-connHost.Errors:
		healthy = false
	default:
		break
	}

	flagged := cp.isConnectionFlagged(connHost.ConnectionID)

	// Between these three states we do our best to determine that a connection is dead in the various lifecycles.
	if flagged || !healthy || connHost.Connection.IsClosed( /* atomic */ ) {
		cp.triggerConnectionRecovery(connHost)
	}

	connHost.PauseOnFlowControl()
}

func (cp *ConnectionPool) triggerConnectionRecovery(connHost *ConnectionHost) {

	// InfiniteLoop: Stay here till we reconnect.
	for {
		ok := connHost.Connect()
		if !ok {
			if cp.sleepOnErrorInterval > 0 {
				time.Sleep(cp.sleepOnErrorInterval)
			}
			continue
		}
		break
	}

	// Flush any pending errors.
	for {
		select {
		case <-connHost.Errors:
		default:
			cp.unflagConnection(connHost.ConnectionID)
			return
		}
	}
}

// ReturnConnection puts the connection back in the queue and flag it for error.
// This helps maintain a Round Robin on Connections and their resources.
func (cp *ConnectionPool) ReturnConnection(connHost *ConnectionHost, flag bool) {

	if flag {
		cp.flagConnection(connHost.ConnectionID)
	}

	_ = cp.connections.Put(connHost)
}

// GetChannelHost creates a fresh ChannelHost on a pooled connection. The
// connection returns to the pool immediately; the caller owns the channel.
func (cp *ConnectionPool) GetChannelHost() (*ChannelHost, error) {

	// InfiniteLoop: Stay till we have a good channel.
	for {
		connHost, err := cp.GetConnection()
		if err != nil {
			cp.handleError(err)
			continue
		}

		chanHost, err := NewChannelHost(connHost, cp.nextChannelID(), connHost.ConnectionID)
		if err != nil {
			cp.handleError(err)
			cp.ReturnConnection(connHost, true)
			continue
		}

		cp.ReturnConnection(connHost, false)
		return chanHost, nil
	}
}

// GetTransientChannel allows you create an unmanaged amqp Channel with the help of the ConnectionPool.
func (cp *ConnectionPool) GetTransientChannel() *amqp.Channel {

	// InfiniteLoop: Stay till we have a good channel.
	for {
		connHost, err := cp.GetConnection()
		if err != nil {
			cp.handleError(err)
			continue
		}

		channel, err := connHost.Connection.Channel()
		if err != nil {
			cp.handleError(err)
			cp.ReturnConnection(connHost, true)
			continue
		}

		cp.ReturnConnection(connHost, false)
		return channel
	}
}

func (cp *ConnectionPool) nextChannelID() uint64 {
	cp.poolRWLock.Lock()
	defer cp.poolRWLock.Unlock()

	cp.channelID++
	return cp.channelID
}

// UnflagConnection flags that connection as usable in the future.
func (cp *ConnectionPool) unflagConnection(connectionID uint64) {
	cp.poolRWLock.Lock()
	defer cp.poolRWLock.Unlock()
	cp.flaggedConnections[connectionID] = false
}

// FlagConnection flags that connection as non-usable in the future.
func (cp *ConnectionPool) flagConnection(connectionID uint64) {
	cp.poolRWLock.Lock()
	defer cp.poolRWLock.Unlock()
	cp.flaggedConnections[connectionID] = true
}

// IsConnectionFlagged checks to see if the connection has been flagged for removal.
func (cp *ConnectionPool) isConnectionFlagged(connectionID uint64) bool {
	cp.poolRWLock.RLock()
	defer cp.poolRWLock.RUnlock()
	if flagged, ok := cp.flaggedConnections[connectionID]; ok {
		return flagged
	}

	return false
}

// Shutdown closes all connections in the ConnectionPool and resets the Pool to pre-initialized state.
func (cp *ConnectionPool) Shutdown() {

	if cp == nil {
		return
	}

	wg := &sync.WaitGroup{}

	for !cp.connections.Empty() {
		items, _ := cp.connections.Get(cp.connections.Len())

		for _, item := range items {
			wg.Add(1)

			connectionHost := item.(*ConnectionHost)

			// Started receiving panics on Connection.Close()
			go func(*ConnectionHost) {
				defer wg.Done()
				defer func() { _ = recover() }()

				if !connectionHost.Connection.IsClosed() {
					connectionHost.Connection.Close()
				}
			}(connectionHost)

		}
	}

	wg.Wait()

	cp.connections = queue.New(int64(cp.Config.MaxConnectionCount))
	cp.flaggedConnections = make(map[uint64]bool)
	cp.connectionID = 0
}

func (cp *ConnectionPool) handleError(err error) {
	cp.logger.Warn("connection pool error", zap.Error(err))
	if cp.sleepOnErrorInterval > 0 {
		time.Sleep(cp.sleepOnErrorInterval)
	}
}
