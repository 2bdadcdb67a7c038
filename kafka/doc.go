// Package kafka provides the Kafka consumer plumbing used for event ingest:
// configuration, TLS/SASL dialers, the Message type, failure classification and
// a lifecycle Component that drives consumer loops.
//
// The per-topic reader lives in kafka/consumer; the mapping of messages to
// stream events lives in relay.
//
// Configuration:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "ssehub"
//	  topics: ["notifications"]
package kafka
