package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/kafka"
	"github.com/kbukum/ssehub/kafka/consumer"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/observability"
	"github.com/kbukum/ssehub/sse"
)

// Kafka headers read by MapMessage.
const (
	HeaderChannel = "channel"
	HeaderEvent   = "event"
	HeaderID      = "id"
)

// MapMessage maps a Kafka record to a stream event. The channel comes from
// the "channel" header, else the key, else the topic. The event type comes
// from the "event" header, else "message". The event id comes from the "id"
// header.
func MapMessage(msg kafka.Message) (string, sse.Event) {
	channel := msg.Header(HeaderChannel)
	if channel == "" {
		channel = msg.Key
	}
	if channel == "" {
		channel = msg.Topic
	}

	eventType := msg.Header(HeaderEvent)
	if eventType == "" {
		eventType = sse.EventTypeMessage
	}

	return channel, sse.Event{
		ID:   msg.Header(HeaderID),
		Type: eventType,
		Data: msg.Value,
	}
}

// KafkaIngest consumes the configured topics and publishes every record as
// a stream event. It is a component.Component.
type KafkaIngest struct {
	*kafka.Component
	publisher sse.Publisher
	log       *logger.Logger
}

// NewKafkaIngest creates one consumer per configured topic. Events go to pub,
// which is the relay publisher when fan-out is on and the registry otherwise.
func NewKafkaIngest(cfg kafka.Config, pub sse.Publisher, log *logger.Logger) (*KafkaIngest, error) {
	cfg.ApplyDefaults()
	ingest := newKafkaIngest(cfg, pub, log)
	for _, topic := range cfg.Topics {
		c, err := consumer.NewConsumer(cfg, topic, log)
		if err != nil {
			return nil, fmt.Errorf("kafka ingest %s: %w", topic, err)
		}
		ingest.AddConsumer(consumer.AsRunner(c, ingest.Handle))
	}
	return ingest, nil
}

func newKafkaIngest(cfg kafka.Config, pub sse.Publisher, log *logger.Logger) *KafkaIngest {
	return &KafkaIngest{
		Component: kafka.NewComponent(cfg, log),
		publisher: pub,
		log:       log.WithComponent("relay.kafka"),
	}
}

// Handle publishes one record. It satisfies kafka.MessageHandler. A record
// declared as JSON whose value does not parse is rejected with a
// non-retryable error, so the consumer skips it instead of passing broken
// JSON on to browsers.
func (k *KafkaIngest) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.IsJSON() && !json.Valid(msg.Value) {
		return apperrors.Validation("record value is not valid JSON").
			WithDetail("topic", msg.Topic).
			WithDetail("offset", msg.Offset)
	}
	channel, ev := MapMessage(msg)

	ctx, span := observability.StartEventSpan(ctx, observability.SpanKafkaIngest, channel, ev.Type)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrSource, "kafka:"+msg.Topic))

	if err := k.publisher.Publish(ctx, channel, ev); err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("publish %s from %s@%d: %w", channel, msg.Topic, msg.Offset, err)
	}
	return nil
}
