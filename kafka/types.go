package kafka

import (
	"context"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Message is a consumed Kafka record with headers flattened into a map.
// When a header repeats, the last value wins.
type Message struct {
	Key       string            `json:"key"`
	Value     []byte            `json:"value"`
	Topic     string            `json:"topic"`
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Timestamp time.Time         `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// MessageHandler processes one consumed message. Errors that Classify as
// retryable get further attempts; the message is committed afterwards
// whatever the outcome.
type MessageHandler func(ctx context.Context, msg Message) error

// FromKafkaMessage converts a kafka-go Message to the domain Message type.
func FromKafkaMessage(msg kafkago.Message) Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Headers:   headers,
	}
}

// Header returns the value of header key, or "" when absent.
func (m Message) Header(key string) string {
	return m.Headers[key]
}

// IsJSON reports whether the producer declared the value as JSON through a
// content-type header, including structured types such as
// application/cloudevents+json.
func (m Message) IsJSON() bool {
	ct := m.Headers["content-type"]
	if ct == "" {
		ct = m.Headers["Content-Type"]
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
