// Package relay moves events between ssehub instances and from external
// producers into the local connection registry.
//
// RedisPublisher and RedisSubscriber fan events out across instances over
// Redis pub/sub: every instance publishes to one Redis channel and every
// instance, the publisher included, broadcasts what it receives to its own
// connections. KafkaIngest turns Kafka records into stream events.
package relay
