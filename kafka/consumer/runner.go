package consumer

import (
	"context"

	"github.com/kbukum/ssehub/kafka"
)

var _ kafka.ConsumerRunner = (*runner)(nil)

// runner binds a Consumer to its handler so the kafka.Component can drive it.
type runner struct {
	consumer *Consumer
	handler  kafka.MessageHandler
}

// AsRunner wraps c and h for kafka.Component.AddConsumer.
func AsRunner(c *Consumer, h kafka.MessageHandler) kafka.ConsumerRunner {
	return &runner{consumer: c, handler: h}
}

func (r *runner) Consume(ctx context.Context) error {
	return r.consumer.Consume(ctx, r.handler)
}

func (r *runner) Close() error { return r.consumer.Close() }

func (r *runner) Topic() string { return r.consumer.Topic() }

func (r *runner) Stats() kafka.ConsumerStats { return r.consumer.Stats() }
