package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/ssehub/component"
	"github.com/kbukum/ssehub/logger"
)

// ConsumerRunner is satisfied by any consumer that can run a consume loop.
type ConsumerRunner interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
	Stats() ConsumerStats
}

// Component runs injected consumers in background goroutines and implements
// component.Component.
type Component struct {
	cfg       Config
	log       *logger.Logger
	consumers []ConsumerRunner
	ctx       context.Context
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg: cfg,
		log: log.WithComponent("kafka"),
	}
}

// AddConsumer injects a consumer. A consumer added while the component is
// running starts immediately.
func (c *Component) AddConsumer(cr ConsumerRunner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, cr)
	if c.running {
		c.run(cr)
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start begins consuming for all injected consumers.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	c.ctx, c.cancelFn = context.WithCancel(context.WithoutCancel(ctx))
	for _, cr := range c.consumers {
		c.run(cr)
	}

	c.running = true
	c.log.Info("Kafka component started", map[string]interface{}{
		"consumers": len(c.consumers),
	})
	return nil
}

// run must be called with mu held.
func (c *Component) run(cr ConsumerRunner) {
	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := cr.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("Consumer stopped with error", map[string]interface{}{
				"topic":           cr.Topic(),
				logger.FieldError: err.Error(),
			})
		}
	}()
}

// Stop cancels the consume loops, waits for them, and closes the consumers.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.log.Info("Kafka component stopping")
	c.cancelFn()
	c.running = false
	consumers := c.consumers
	c.consumers = nil
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error
	for _, cr := range consumers {
		if err := cr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cr.Topic(), err))
		}
	}
	return errors.Join(errs...)
}

// Health checks broker connectivity by dialling the first broker.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	var total ConsumerStats
	for _, cr := range c.consumers {
		total.Add(cr.Stats())
	}
	c.mu.Unlock()

	if !cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusDisabled}
	}
	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka not started"}
	}
	if len(cfg.Brokers) == 0 {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "no brokers configured"}
	}

	dialer, err := cfg.Dialer()
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("dialer: %v", err)}
	}

	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("broker unreachable: %v", err)}
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("broker metadata: %v", err)}
	}

	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("lag=%d handled=%d skipped=%d", total.Lag, total.Handled, total.Skipped),
	}
}

// Describe returns infrastructure summary info for the startup summary.
func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()

	details := fmt.Sprintf("brokers=%v group=%s", c.cfg.Brokers, c.cfg.GroupID)
	topics := make([]string, 0, len(c.consumers))
	for _, cr := range c.consumers {
		topics = append(topics, cr.Topic())
	}
	if len(topics) > 0 {
		details += fmt.Sprintf(" topics=%v", topics)
	}
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: details,
	}
}
