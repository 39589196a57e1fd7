package rtr

import (
	"fmt"

	"go.uber.org/zap"
)

// RetrievalMode selects between destructive and non-destructive retrieval.
type RetrievalMode int

const (
	// ConsumeMode retrieves destructively: each message resolves to the
	// configured ack mode.
	ConsumeMode RetrievalMode = iota

	// PeekMode retrieves non-destructively: every message is released back
	// to the queue regardless of any ack mode setting.
	PeekMode
)

// String allows you to quickly log a RetrievalMode.
func (m RetrievalMode) String() string {
	if m == PeekMode {
		return "peek"
	}
	return "consume"
}

// DefaultConsumePrefetch is applied when consuming without an explicit
// prefetch count.
const DefaultConsumePrefetch = 100

// RetrievalOptions carries everything needed to plan a single retrieval run.
type RetrievalOptions struct {
	QueueName    string
	ConsumerName string
	Mode         RetrievalMode

	// AckMode is only meaningful in ConsumeMode.
	AckMode AckOutcome

	// MessageCountLimit stops the run after exactly this many messages have
	// been accepted into the pipeline. Zero or below means unbounded.
	MessageCountLimit int64

	// PrefetchCount is the QoS credit (0 = unlimited). PrefetchSet records
	// whether the caller set it explicitly, which matters for requeue
	// safety resolution.
	PrefetchCount int
	PrefetchSet   bool
}

// RetrievalPlan is the resolved policy for one run: the effective QoS value
// and the fixed acknowledgement outcome every processed message resolves to.
type RetrievalPlan struct {
	Mode     RetrievalMode
	Prefetch int
	Outcome  AckOutcome
}

// ResolveRetrievalPlan validates RetrievalOptions and produces the effective
// prefetch and ack outcome for the run.
//
// Requeue safety: consuming with a bounded prefetch and immediate requeue
// redelivers the same window of messages indefinitely, so an unset prefetch
// is forced to 0 (unlimited) and an explicit nonzero prefetch is rejected
// rather than silently corrected.
func ResolveRetrievalPlan(opts RetrievalOptions, logger *zap.Logger) (*RetrievalPlan, error) {

	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.QueueName == "" {
		return nil, fmt.Errorf("can't plan retrieval with an empty queue name")
	}

	if opts.Mode == PeekMode {
		return &RetrievalPlan{
			Mode:     PeekMode,
			Prefetch: 0,
			Outcome:  RequeueOutcome,
		}, nil
	}

	prefetch := DefaultConsumePrefetch
	if opts.PrefetchSet {
		prefetch = opts.PrefetchCount
	}

	if opts.AckMode == RequeueOutcome {
		if opts.PrefetchSet && opts.PrefetchCount > 0 {
			return nil, fmt.Errorf("queue %q: %w", opts.QueueName, ErrPrefetchConflict)
		}

		prefetch = 0

		if opts.MessageCountLimit <= 0 {
			logger.Warn("consuming with requeue and no message count limit - unacknowledged messages accumulate without bound",
				zap.String("queue", opts.QueueName))
		}
	}

	return &RetrievalPlan{
		Mode:     ConsumeMode,
		Prefetch: prefetch,
		Outcome:  opts.AckMode,
	}, nil
}
