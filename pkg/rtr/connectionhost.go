package rtr

import (
	"errors"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ConnectionHost is an internal representation of amqp.Connection.
type ConnectionHost struct {
	Connection        *amqp.Connection
	ConnectionID      uint64
	uri               string
	connectionName    string
	heartbeatInterval time.Duration
	connectionTimeout time.Duration
	tlsConfig         *TLSConfig
	logger            *zap.Logger
	Errors            chan *amqp.Error
	Blockers          chan amqp.Blocking
	connLock          *sync.Mutex
}

// NewConnectionHost creates a ConnectionHost and establishes its first
// connection.
func NewConnectionHost(
	uri string,
	connectionName string,
	connectionID uint64,
	heartbeatInterval time.Duration,
	connectionTimeout time.Duration,
	tlsConfig *TLSConfig,
	logger *zap.Logger) (*ConnectionHost, error) {

	if logger == nil {
		logger = zap.NewNop()
	}

	connHost := &ConnectionHost{
		uri:               uri,
		connectionName:    connectionName,
		ConnectionID:      connectionID,
		heartbeatInterval: heartbeatInterval,
		connectionTimeout: connectionTimeout,
		tlsConfig:         tlsConfig,
		logger:            logger,
		Errors:            make(chan *amqp.Error, 10),
		Blockers:          make(chan amqp.Blocking, 10),
		connLock:          &sync.Mutex{},
	}

	if !connHost.Connect() {
		return nil, errors.New("unable to connect")
	}

	return connHost, nil
}

// Connect tries to connect (or reconnect) to the provided properties of the
// host one time. Failures are logged and reported by the return value.
func (ch *ConnectionHost) Connect() bool {

	// Compare, Lock, Recompare Strategy
	if ch.Connection != nil && !ch.Connection.IsClosed() /* <- atomic */ {
		return true
	}

	ch.connLock.Lock() // Block all but one.
	defer ch.connLock.Unlock()

	// Recompare, check if an operation is still necessary after acquiring lock.
	if ch.Connection != nil && !ch.Connection.IsClosed() /* <- atomic */ {
		return true
	}

	amqpConn, err := ch.dial()
	if err != nil {
		ch.logger.Warn(
			"connection dial failed",
			zap.Uint64("connectionID", ch.ConnectionID),
			zap.Error(err))
		return false
	}

	ch.Connection = amqpConn
	ch.Errors = make(chan *amqp.Error, 10)
	ch.Blockers = make(chan amqp.Blocking, 10)

	ch.Connection.NotifyClose(ch.Errors) // ch.Errors is closed by streadway/amqp in some scenarios :(
	ch.Connection.NotifyBlocked(ch.Blockers)

	return true
}

func (ch *ConnectionHost) dial() (*amqp.Connection, error) {

	config := amqp.Config{
		Heartbeat: ch.heartbeatInterval,
		Dial:      amqp.DefaultDial(ch.connectionTimeout),
		Properties: amqp.Table{
			"connection_name": ch.connectionName,
		},
	}

	if ch.tlsConfig == nil || !ch.tlsConfig.EnableTLS {
		return amqp.DialConfig(ch.uri, config)
	}

	actualTLSConfig, err := CreateTLSConfig(
		ch.tlsConfig.PEMCertLocation,
		ch.tlsConfig.LocalCertLocation)
	if err != nil {
		return nil, err
	}

	config.TLSClientConfig = actualTLSConfig
	return amqp.DialConfig("amqps://"+ch.tlsConfig.CertServerName, config)
}

// PauseOnFlowControl allows you to wait and sleep while receiving flow control messages.
// Sleeps for one second, repeatedly until the blocking has stopped.
func (ch *ConnectionHost) PauseOnFlowControl() {

	ch.connLock.Lock()
	defer ch.connLock.Unlock()

	for {
		// nothing we can do (race condition) Blockers
		// and will deadlock if it is read from.
		if ch.Connection.IsClosed( /* atomic */ ) {
			return
		}

		select {
		case blocker := <-ch.Blockers: // Check for flow control issues.
			if !blocker.Active {
				return
			}

			ch.logger.Info("paused on flow control", zap.Uint64("connectionID", ch.ConnectionID))
			time.Sleep(time.Second)
		default:
			return
		}
	}
}
