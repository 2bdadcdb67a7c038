package kafka

import (
	"sync/atomic"

	kafkago "github.com/segmentio/kafka-go"
)

// ConsumerStats reports one topic's reader state and ingest outcomes.
type ConsumerStats struct {
	Topic      string `json:"topic"`
	Offset     int64  `json:"offset"`
	Lag        int64  `json:"lag"`
	ReadErrors int64  `json:"read_errors"`
	Rebalances int64  `json:"rebalances"`

	// Handled records were published, possibly after retries.
	Handled int64 `json:"handled"`
	// Retried counts extra handler attempts.
	Retried int64 `json:"retried"`
	// Skipped records failed for good and were committed anyway.
	Skipped int64 `json:"skipped"`
}

// Add accumulates o into s, for totals across topics.
func (s *ConsumerStats) Add(o ConsumerStats) {
	s.Lag += o.Lag
	s.ReadErrors += o.ReadErrors
	s.Rebalances += o.Rebalances
	s.Handled += o.Handled
	s.Retried += o.Retried
	s.Skipped += o.Skipped
}

// IngestCounters are the ingest outcomes a consume loop records. The zero
// value is ready to use.
type IngestCounters struct {
	handled atomic.Int64
	retried atomic.Int64
	skipped atomic.Int64
}

func (c *IngestCounters) RecordHandled() { c.handled.Add(1) }
func (c *IngestCounters) RecordRetry()   { c.retried.Add(1) }
func (c *IngestCounters) RecordSkipped() { c.skipped.Add(1) }

// Snapshot merges the counters with the reader's statistics. kafka-go resets
// its counters on every Stats call; lag and offset are gauges and stay put.
func (c *IngestCounters) Snapshot(rs kafkago.ReaderStats) ConsumerStats {
	return ConsumerStats{
		Topic:      rs.Topic,
		Offset:     rs.Offset,
		Lag:        rs.Lag,
		ReadErrors: rs.Errors,
		Rebalances: rs.Rebalances,
		Handled:    c.handled.Load(),
		Retried:    c.retried.Load(),
		Skipped:    c.skipped.Load(),
	}
}
