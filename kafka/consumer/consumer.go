// Package consumer reads Kafka topics with kafka-go readers and hands each
// message to a kafka.MessageHandler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/ssehub/kafka"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/resilience"
)

const maxReadBackoff = 30 * time.Second

// reader is the part of *kafkago.Reader the consume loop needs.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.ReaderStats
	Close() error
}

// Consumer feeds the records of one topic to a handler. Every record is
// committed once handled or skipped, so a record that can never be
// published does not stall its partition.
type Consumer struct {
	reader  reader
	topic   string
	groupID string
	retry   resilience.RetryConfig
	log     *logger.Logger

	counters     kafka.IngestCounters
	readFailures int
}

// NewConsumer creates a consumer for one topic of cfg.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	dialer, err := cfg.Dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")
	errorLog := kafkago.LoggerFunc(func(msg string, args ...interface{}) {
		clog.Warn("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic))
	})
	r := kafkago.NewReader(cfg.ReaderConfig(topic, dialer, errorLog))

	clog.Info("kafka consumer initialized", logger.Fields(
		"topic", topic,
		"group_id", cfg.GroupID,
		"handler_attempts", cfg.HandlerAttempts,
	))
	return newConsumer(r, topic, cfg.GroupID, HandlerRetry(cfg), clog), nil
}

// HandlerRetry derives the per-record retry policy from cfg. Only failures
// that kafka.Classify marks retryable are attempted again.
func HandlerRetry(cfg kafka.Config) resilience.RetryConfig {
	backoff := kafka.ParseDuration(cfg.HandlerBackoff)
	return resilience.RetryConfig{
		MaxAttempts:    cfg.HandlerAttempts,
		InitialBackoff: backoff,
		MaxBackoff:     16 * backoff,
		Jitter:         0.2,
		RetryIf: func(err error) bool {
			return kafka.Classify(err).Retryable() && !errors.Is(err, context.Canceled)
		},
	}
}

func newConsumer(r reader, topic, groupID string, retry resilience.RetryConfig, log *logger.Logger) *Consumer {
	c := &Consumer{reader: r, topic: topic, groupID: groupID, retry: retry, log: log}
	next := retry.OnRetry
	c.retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.counters.RecordRetry()
		if next != nil {
			next(attempt, err, backoff)
		}
	}
	return c
}

// Consume fetches, handles and commits records until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler kafka.MessageHandler) error {
	c.log.Info("consume loop started", logger.Fields("topic", c.topic, "group_id", c.groupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			if waitErr := c.backOffRead(ctx, err); waitErr != nil {
				return waitErr
			}
			continue
		}
		c.readFailures = 0

		c.handle(ctx, msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("commit failed", logger.Fields(
				logger.FieldError, err.Error(),
				"topic", msg.Topic,
				"offset", msg.Offset,
			))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message, handler kafka.MessageHandler) {
	record := kafka.FromKafkaMessage(msg)
	err := resilience.RetryFunc(ctx, c.retry, func() error {
		return handler(ctx, record)
	})
	if err == nil {
		c.counters.RecordHandled()
		return
	}
	if ctx.Err() != nil {
		return
	}

	c.counters.RecordSkipped()
	c.log.Error("record skipped", logger.Fields(
		logger.FieldError, err.Error(),
		"class", kafka.Classify(err).String(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	))
}

// backOffRead waits after a failed fetch, one second more per consecutive
// failure up to maxReadBackoff. Only the first few failures are logged.
func (c *Consumer) backOffRead(ctx context.Context, err error) error {
	c.readFailures++
	if c.readFailures <= 3 {
		c.log.Error("kafka read failed", logger.Fields(
			logger.FieldError, err.Error(),
			"class", kafka.Classify(err).String(),
			"failures", c.readFailures,
			"topic", c.topic,
		))
	}

	wait := time.Duration(c.readFailures) * time.Second
	if wait > maxReadBackoff {
		wait = maxReadBackoff
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// GroupID returns the consumer's group ID.
func (c *Consumer) GroupID() string { return c.groupID }

// Stats returns the reader state and ingest outcomes.
func (c *Consumer) Stats() kafka.ConsumerStats {
	return c.counters.Snapshot(c.reader.Stats())
}

// Close shuts down the reader.
func (c *Consumer) Close() error {
	c.log.Info("kafka consumer closing", logger.Fields("topic", c.topic, "group_id", c.groupID))
	return c.reader.Close()
}
