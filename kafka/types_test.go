package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestFromKafkaMessage(t *testing.T) {
	now := time.Now()
	km := kafkago.Message{
		Key:       []byte("key1"),
		Value:     []byte(`{"hello":"world"}`),
		Topic:     "test-topic",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "channel", Value: []byte("orders")},
		},
	}
	msg := FromKafkaMessage(km)
	if msg.Key != "key1" || msg.Topic != "test-topic" {
		t.Errorf("unexpected key/topic %q/%q", msg.Key, msg.Topic)
	}
	if string(msg.Value) != `{"hello":"world"}` {
		t.Errorf("Value = %q", string(msg.Value))
	}
	if msg.Partition != 2 || msg.Offset != 42 {
		t.Errorf("Partition/Offset = %d/%d", msg.Partition, msg.Offset)
	}
	if !msg.Timestamp.Equal(now) {
		t.Error("Timestamp mismatch")
	}
	if msg.Header("channel") != "orders" {
		t.Errorf("Header(channel) = %q", msg.Header("channel"))
	}
	if msg.Header("missing") != "" {
		t.Error("expected empty value for a missing header")
	}
}

func TestFromKafkaMessage_RepeatedHeaderLastWins(t *testing.T) {
	msg := FromKafkaMessage(kafkago.Message{Headers: []kafkago.Header{
		{Key: "event", Value: []byte("a")},
		{Key: "event", Value: []byte("b")},
	}})
	if msg.Header("event") != "b" {
		t.Errorf("Header(event) = %q, want b", msg.Header("event"))
	}
}

func TestMessage_IsJSON(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"json", Message{Headers: map[string]string{"content-type": "application/json"}}, true},
		{"charset parameter", Message{Headers: map[string]string{"content-type": "Application/JSON; charset=utf-8"}}, true},
		{"structured suffix", Message{Headers: map[string]string{"Content-Type": "application/cloudevents+json"}}, true},
		{"undeclared object", Message{Value: []byte(`{"a":1}`)}, false},
		{"text", Message{Headers: map[string]string{"content-type": "text/plain"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsJSON(); got != tt.want {
				t.Errorf("IsJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}
