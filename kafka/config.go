package kafka

import (
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Config holds the Kafka consumer settings used for event ingest.
type Config struct {
	// Enabled controls whether Kafka ingest is active.
	Enabled bool `mapstructure:"enabled"`

	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`

	// GroupID is the consumer group identifier.
	GroupID string `mapstructure:"group_id"`

	// Topics is the list of topics to consume from.
	Topics []string `mapstructure:"topics"`

	// StartOffset is "first" or "last" and applies to new consumer groups.
	StartOffset string `mapstructure:"start_offset"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Consumer settings
	MinBytes          int    `mapstructure:"min_bytes"`
	MaxBytes          int    `mapstructure:"max_bytes"`
	MaxWait           string `mapstructure:"max_wait"`
	CommitInterval    string `mapstructure:"commit_interval"`
	SessionTimeout    string `mapstructure:"session_timeout"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `mapstructure:"rebalance_timeout"`

	// Connection settings
	DialTimeout string `mapstructure:"dial_timeout"`

	// HandlerAttempts bounds how often a record is handed to the publisher
	// when publishing fails with a retryable error. The record is committed
	// either way.
	HandlerAttempts int `mapstructure:"handler_attempts"`
	// HandlerBackoff is the first delay between handler attempts; it doubles.
	HandlerBackoff string `mapstructure:"handler_backoff"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = "ssehub"
	}
	if c.StartOffset == "" {
		c.StartOffset = "last"
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	if c.MaxWait == "" {
		c.MaxWait = "500ms"
	}
	if c.CommitInterval == "" {
		c.CommitInterval = "1s"
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.RebalanceTimeout == "" {
		c.RebalanceTimeout = "30s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.HandlerAttempts <= 0 {
		c.HandlerAttempts = 3
	}
	if c.HandlerBackoff == "" {
		c.HandlerBackoff = "200ms"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("kafka topics are required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka group_id is required")
	}
	switch c.StartOffset {
	case "first", "last":
	default:
		return fmt.Errorf("invalid start_offset %q: must be first or last", c.StartOffset)
	}
	for _, d := range []struct {
		name, val string
	}{
		{"max_wait", c.MaxWait},
		{"commit_interval", c.CommitInterval},
		{"session_timeout", c.SessionTimeout},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"rebalance_timeout", c.RebalanceTimeout},
		{"dial_timeout", c.DialTimeout},
		{"handler_backoff", c.HandlerBackoff},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.EnableSASL {
		if _, ok := saslMechanisms[c.SASLMechanism]; !ok {
			return fmt.Errorf("unsupported SASL mechanism %q (want one of %v)", c.SASLMechanism, supportedMechanisms())
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	if c.HandlerAttempts <= 0 {
		return fmt.Errorf("kafka handler_attempts must be positive")
	}
	if c.MinBytes > c.MaxBytes {
		return fmt.Errorf("min_bytes must not exceed max_bytes")
	}
	return nil
}

// ParseDuration parses a duration string, returning zero on empty input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ResolveStartOffset maps StartOffset to the kafka-go offset constant.
func ResolveStartOffset(name string) int64 {
	if name == "first" {
		return kafkago.FirstOffset
	}
	return kafkago.LastOffset
}
