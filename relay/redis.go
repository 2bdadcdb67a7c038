package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/ssehub/component"
	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/observability"
	"github.com/kbukum/ssehub/redis"
	"github.com/kbukum/ssehub/resilience"
	"github.com/kbukum/ssehub/sse"
)

// RedisPublisher publishes events to every instance through Redis pub/sub.
// Each publish is retried and runs behind a circuit breaker.
type RedisPublisher struct {
	client  *redis.Client
	topic   string
	origin  string
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

var _ sse.Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on cfg.Topic(). origin names this
// instance in the envelopes it sends.
func NewRedisPublisher(client *redis.Client, cfg Config, origin string) *RedisPublisher {
	cfg.ApplyDefaults()
	log := logger.WithComponent("relay")

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.PublishAttempts

	return &RedisPublisher{
		client: client,
		topic:  cfg.Topic(),
		origin: origin,
		retry:  retry,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "relay-publish",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeoutDuration(),
			OnStateChange: func(name string, from, to resilience.State) {
				log.Warn("relay circuit state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
			},
		}),
	}
}

// Publish sends ev for channel to all subscribed instances.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, ev sse.Event) error {
	payload, err := json.Marshal(NewEnvelope(channel, ev, p.origin))
	if err != nil {
		return apperrors.Internal(err)
	}
	err = p.breaker.Execute(func() error {
		return resilience.RetryFunc(ctx, p.retry, func() error {
			_, err := p.client.Publish(ctx, p.topic, payload)
			return err
		})
	})
	if err != nil {
		return apperrors.ServiceUnavailable("redis").WithCause(err)
	}
	return nil
}

// CircuitState reports the publish circuit state.
func (p *RedisPublisher) CircuitState() resilience.State {
	return p.breaker.State()
}

// RedisSubscriber receives relayed envelopes and broadcasts them to the local
// registry. It is a component.Component.
type RedisSubscriber struct {
	client   *redis.Client
	registry *sse.Registry
	topic    string
	log      *logger.Logger

	mu      sync.Mutex
	pubsub  *goredis.PubSub
	done    chan struct{}
	running bool
}

var _ component.Component = (*RedisSubscriber)(nil)

// NewRedisSubscriber creates a subscriber feeding reg.
func NewRedisSubscriber(client *redis.Client, reg *sse.Registry, cfg Config, log *logger.Logger) *RedisSubscriber {
	cfg.ApplyDefaults()
	return &RedisSubscriber{
		client:   client,
		registry: reg,
		topic:    cfg.Topic(),
		log:      log.WithComponent("relay"),
	}
}

// Name returns the component name.
func (s *RedisSubscriber) Name() string { return "relay" }

// Start subscribes and waits for Redis to confirm the subscription before
// returning, so no publish made after Start is missed.
func (s *RedisSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ps := s.client.Subscribe(ctx, s.topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("relay subscribe %s: %w", s.topic, err)
	}

	s.pubsub = ps
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ps.Channel(), s.done)

	s.log.Info("relay subscribed", logger.Fields("topic", s.topic))
	return nil
}

func (s *RedisSubscriber) loop(messages <-chan *goredis.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		s.handle(context.Background(), []byte(msg.Payload))
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		s.log.Warn("malformed relay payload skipped", logger.ErrorFields("decode_envelope", err))
		return
	}

	ctx, span := observability.StartEventSpan(ctx, observability.SpanRelayReceive, env.Channel, env.Type)
	defer span.End()
	if env.Origin != "" {
		span.SetAttributes(attribute.String(observability.AttrSource, "relay:"+env.Origin))
	}

	res := s.registry.Broadcast(ctx, env.Channel, env.Event())
	observability.RecordDelivery(span, res.Delivered, res.Dropped, res.Evicted)
}

// Stop unsubscribes and waits for the receive loop to drain.
func (s *RedisSubscriber) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	ps, done := s.pubsub, s.done
	s.pubsub = nil
	s.running = false
	s.mu.Unlock()

	err := ps.Close()
	<-done
	s.log.Info("relay unsubscribed", logger.Fields("topic", s.topic))
	return err
}

// Health reports whether the subscription is active and Redis answers.
func (s *RedisSubscriber) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not subscribed"}
	}
	if err := s.client.Ping(ctx); err != nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: s.topic}
}

// Describe returns the startup summary line.
func (s *RedisSubscriber) Describe() component.Description {
	return component.Description{Name: "Relay", Type: "relay", Details: "redis topic=" + s.topic}
}
