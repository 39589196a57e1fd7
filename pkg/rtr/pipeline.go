package rtr

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// MessagePipeline is the output stage: the sole consumer of the
// DeliveryBuffer. Each drained message is written to the sink and resolved to
// exactly one AckDecision carrying the plan's outcome. When the buffer is
// closed and drained the pipeline closes the decision channel so the
// AckDispatcher can drain and terminate.
type MessagePipeline struct {
	buffer    *DeliveryBuffer
	sink      MessageSink
	outcome   AckOutcome
	decisions chan<- AckDecision
	logger    *zap.Logger

	processed  uint64
	totalBytes uint64
	sinkErr    error
}

// NewMessagePipeline creates a MessagePipeline for one retrieval run.
func NewMessagePipeline(
	buffer *DeliveryBuffer,
	sink MessageSink,
	outcome AckOutcome,
	decisions chan<- AckDecision,
	logger *zap.Logger) *MessagePipeline {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &MessagePipeline{
		buffer:    buffer,
		sink:      sink,
		outcome:   outcome,
		decisions: decisions,
		logger:    logger,
	}
}

// Run drains the buffer until end-of-stream or a sink failure. A sink
// failure is fatal to the run; messages still in the buffer are abandoned
// for the broker to redeliver.
func (mp *MessagePipeline) Run() {
	defer close(mp.decisions)

	for {
		msg, ok := mp.buffer.Next()
		if !ok {
			return
		}

		if err := mp.sink.Write(msg); err != nil {
			mp.sinkErr = fmt.Errorf("output sink failed on delivery tag %d: %w", msg.DeliveryTag, err)
			return
		}

		atomic.AddUint64(&mp.processed, 1)
		atomic.AddUint64(&mp.totalBytes, uint64(len(msg.Body)))

		mp.decisions <- AckDecision{
			DeliveryTag: msg.DeliveryTag,
			Outcome:     mp.outcome,
		}
	}
}

// Processed reads how many messages reached the sink.
func (mp *MessagePipeline) Processed() uint64 {
	return atomic.LoadUint64(&mp.processed)
}

// TotalBytes reads the total body bytes written to the sink.
func (mp *MessagePipeline) TotalBytes() uint64 {
	return atomic.LoadUint64(&mp.totalBytes)
}

// Err yields the fatal sink error, if any. Only valid after Run returns.
func (mp *MessagePipeline) Err() error {
	return mp.sinkErr
}
