package rtr

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Retriever drives complete retrieval runs against a ConnectionPool: queue
// validation, subscription, draining to the sink and ordered acknowledgement
// dispatch.
type Retriever struct {
	pool   *ConnectionPool
	sink   MessageSink
	logger *zap.Logger
}

// NewRetriever creates a Retriever over an existing pool and sink.
func NewRetriever(pool *ConnectionPool, sink MessageSink, logger *zap.Logger) *Retriever {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		pool:   pool,
		sink:   sink,
		logger: logger,
	}
}

// NewRetrieverFromConfig builds the pool from seasoning and wraps the sink in
// a DecodingSink when payload decoding is configured. The passphrase and salt
// feed Argon2id key derivation for encrypted payloads; pass empty strings when
// encryption is not in play.
func NewRetrieverFromConfig(seasoning *RetrieverSeasoning, passphrase, salt string, sink MessageSink, logger *zap.Logger) (*Retriever, error) {

	pool, err := NewConnectionPool(seasoning.PoolConfig, logger)
	if err != nil {
		return nil, err
	}

	sink = NewDecodingSinkFromConfig(sink, seasoning, passphrase, salt)

	return NewRetriever(pool, sink, logger), nil
}

// RetrievalResult summarizes one completed run.
type RetrievalResult struct {
	QueueName         string
	Mode              RetrievalMode
	Snapshot          *QueueSnapshot
	MessagesReceived  uint64
	MessagesProcessed uint64

	// MessagesSkipped counts deliveries accepted into the pipeline that never
	// reached the sink, abandoned by a mid-drain shutdown.
	MessagesSkipped uint64

	TotalBytes      uint64
	AcksDispatched  uint64
	AcksFailed      uint64
	CancelledByUser bool
	Elapsed         time.Duration
}

// Run validates the queue and performs a full retrieval on a fresh channel.
// The queue check runs on a transient channel since a failed passive declare
// closes the channel it ran on.
func (r *Retriever) Run(ctx context.Context, opts RetrievalOptions) (*RetrievalResult, error) {

	transient := r.pool.GetTransientChannel()
	snapshot, err := ValidateQueue(transient, opts.QueueName)
	_ = transient.Close()
	if err != nil {
		return nil, err
	}

	chanHost, err := r.pool.GetChannelHost()
	if err != nil {
		return nil, err
	}
	defer chanHost.Close()

	result, err := r.RunWithChannel(ctx, chanHost.Channel, opts)
	if result != nil {
		result.Snapshot = snapshot
	}

	return result, err
}

// RunWithChannel performs a retrieval run on a caller-provided channel. The
// channel carries both the subscription and every acknowledgement so delivery
// tags stay meaningful; the caller still owns closing it.
func (r *Retriever) RunWithChannel(ctx context.Context, channel RetrievalChannel, opts RetrievalOptions) (*RetrievalResult, error) {

	plan, err := ResolveRetrievalPlan(opts, r.logger)
	if err != nil {
		return nil, err
	}

	consumerTag := consumerTagFor(opts.ConsumerName)
	started := time.Now()

	counter := NewReceivedCounter(opts.MessageCountLimit)
	buffer := NewDeliveryBuffer(opts.MessageCountLimit, 0)
	tracker := NewFlightTracker()

	coordinator := NewCancellationCoordinator(channel, consumerTag, buffer, r.logger)
	coordinator.Watch(ctx)

	decisions := make(chan AckDecision, 1000)
	pipeline := NewMessagePipeline(buffer, r.sink, plan.Outcome, decisions, r.logger)
	dispatcher := NewAckDispatcher(channel, decisions, tracker, r.logger)
	bridge := NewDeliveryBridge(channel, opts.QueueName, consumerTag, plan.Prefetch, buffer, counter, coordinator, tracker, r.logger)

	r.logger.Info("retrieval run starting",
		zap.String("queue", opts.QueueName),
		zap.String("consumerTag", consumerTag),
		zap.String("mode", plan.Mode.String()),
		zap.Int("prefetch", plan.Prefetch),
		zap.Int64("messageCountLimit", opts.MessageCountLimit))

	if err := bridge.Start(); err != nil {
		coordinator.Close()
		buffer.Dispose()
		return nil, err
	}

	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		pipeline.Run()

		// A sink failure terminates the run the same way count-reached does,
		// so everything upstream winds down instead of feeding a dead sink.
		if pipeline.Err() != nil {
			coordinator.Shutdown(false)
		}
	}()

	wg.Wait()
	bridge.Wait()
	coordinator.Close()
	buffer.Dispose()

	received := counter.Count()
	processed := pipeline.Processed()

	result := &RetrievalResult{
		QueueName:         opts.QueueName,
		Mode:              plan.Mode,
		MessagesReceived:  received,
		MessagesProcessed: processed,
		MessagesSkipped:   received - processed,
		TotalBytes:        pipeline.TotalBytes(),
		AcksDispatched:    dispatcher.Dispatched(),
		AcksFailed:        dispatcher.Failed(),
		CancelledByUser:   coordinator.CancelledByUser(),
		Elapsed:           time.Since(started),
	}

	r.logger.Info("retrieval run finished",
		zap.String("queue", opts.QueueName),
		zap.Uint64("received", result.MessagesReceived),
		zap.Uint64("processed", result.MessagesProcessed),
		zap.Uint64("skipped", result.MessagesSkipped),
		zap.Bool("cancelledByUser", result.CancelledByUser),
		zap.Duration("elapsed", result.Elapsed))

	// A partial result still comes back alongside the fatal sink error so the
	// operator can see how far the run got.
	return result, pipeline.Err()
}

// Shutdown closes the underlying ConnectionPool.
func (r *Retriever) Shutdown() {
	r.pool.Shutdown()
}

func consumerTagFor(consumerName string) string {

	if consumerName == "" {
		consumerName = "rtr"
	}

	return consumerName + "-" + uuid.New().String()
}
