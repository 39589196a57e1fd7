package rtr

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// RetrievalState is the lifecycle state of a retrieval run.
type RetrievalState int32

const (
	// StateRunning means deliveries are being accepted into the pipeline.
	StateRunning RetrievalState = iota

	// StateShuttingDown means a cancellation trigger fired and the pipeline
	// is draining what it already accepted.
	StateShuttingDown

	// StateClosed means both pipeline workers have terminated.
	StateClosed
)

// CancellationCoordinator merges two independent cancellation triggers - an
// externally supplied signal (operator interrupt) and the internal
// count-reached signal - into one combined signal, and performs the shutdown
// sequence exactly once no matter which trigger fires first or whether both
// race.
type CancellationCoordinator struct {
	channel     RetrievalChannel
	consumerTag string
	buffer      *DeliveryBuffer
	logger      *zap.Logger

	state     int32
	triggered int32
	byUser    int32

	ctx       context.Context
	cancel    context.CancelFunc
	watchDone chan struct{}
}

// NewCancellationCoordinator creates a coordinator for one retrieval run.
func NewCancellationCoordinator(
	channel RetrievalChannel,
	consumerTag string,
	buffer *DeliveryBuffer,
	logger *zap.Logger) *CancellationCoordinator {

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &CancellationCoordinator{
		channel:     channel,
		consumerTag: consumerTag,
		buffer:      buffer,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		watchDone:   make(chan struct{}),
	}
}

// Watch forwards an external cancellation signal into the combined signal.
// The watcher terminates when either the external context or the combined
// signal fires.
func (cc *CancellationCoordinator) Watch(external context.Context) {

	go func() {
		defer close(cc.watchDone)

		select {
		case <-external.Done():
			cc.Shutdown(true)
		case <-cc.ctx.Done():
		}
	}()
}

// Shutdown performs the one-shot transition Running -> ShuttingDown:
// unsubscribe the consumer (best-effort), close the delivery buffer for
// writes so the pipeline can drain to end-of-stream, then fire the combined
// signal. Whichever trigger loses the CAS race is a no-op.
func (cc *CancellationCoordinator) Shutdown(byUser bool) {

	if !atomic.CompareAndSwapInt32(&cc.triggered, 0, 1) {
		return
	}

	if byUser {
		atomic.StoreInt32(&cc.byUser, 1)
	}
	atomic.StoreInt32(&cc.state, int32(StateShuttingDown))

	// Best-effort: the channel close at the end of the run also terminates
	// the subscription.
	if err := cc.channel.Cancel(cc.consumerTag, false); err != nil {
		cc.logger.Warn("consumer cancel failed during shutdown",
			zap.String("consumerTag", cc.consumerTag),
			zap.Error(err))
	}

	cc.buffer.CloseWrites()
	cc.cancel()
}

// Done yields the combined cancellation signal.
func (cc *CancellationCoordinator) Done() <-chan struct{} {
	return cc.ctx.Done()
}

// Signaled reports whether either trigger has fired.
func (cc *CancellationCoordinator) Signaled() bool {
	return atomic.LoadInt32(&cc.triggered) == 1
}

// CancelledByUser reports whether the external signal fired first. Reported
// to the operator as a distinct condition from count-reached.
func (cc *CancellationCoordinator) CancelledByUser() bool {
	return atomic.LoadInt32(&cc.byUser) == 1
}

// State reads the current lifecycle state.
func (cc *CancellationCoordinator) State() RetrievalState {
	return RetrievalState(atomic.LoadInt32(&cc.state))
}

// Close marks the run terminated and releases the watcher. Safe to call
// whether or not a trigger ever fired.
func (cc *CancellationCoordinator) Close() {
	cc.cancel()
	<-cc.watchDone
	atomic.StoreInt32(&cc.state, int32(StateClosed))
}
