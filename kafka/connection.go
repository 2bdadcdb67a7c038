package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sort"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// saslMechanisms maps the sasl_mechanism setting to its constructor.
var saslMechanisms = map[string]func(user, pass string) (sasl.Mechanism, error){
	"PLAIN": func(user, pass string) (sasl.Mechanism, error) {
		return plain.Mechanism{Username: user, Password: pass}, nil
	},
	"SCRAM-SHA-256": func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA256, user, pass)
	},
	"SCRAM-SHA-512": func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA512, user, pass)
	},
}

func supportedMechanisms() []string {
	names := make([]string, 0, len(saslMechanisms))
	for name := range saslMechanisms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dialer returns the dialer shared by the ingest readers and the broker
// health check, with TLS and SASL applied when enabled.
func (c *Config) Dialer() (*kafkago.Dialer, error) {
	d := &kafkago.Dialer{
		Timeout:   ParseDuration(c.DialTimeout),
		DualStack: true,
	}
	if c.EnableTLS {
		tc, err := c.tlsConfig()
		if err != nil {
			return nil, fmt.Errorf("kafka tls: %w", err)
		}
		d.TLS = tc
	}
	if c.EnableSASL {
		build, ok := saslMechanisms[c.SASLMechanism]
		if !ok {
			return nil, fmt.Errorf("kafka sasl: unsupported mechanism %q (want one of %v)", c.SASLMechanism, supportedMechanisms())
		}
		m, err := build(c.Username, c.Password)
		if err != nil {
			return nil, fmt.Errorf("kafka sasl: %w", err)
		}
		d.SASLMechanism = m
	}
	return d, nil
}

func (c *Config) tlsConfig() (*tls.Config, error) {
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.TLSSkipVerify, //nolint:gosec // opt-in for test clusters
	}
	if c.TLSCAFile != "" {
		pem, err := os.ReadFile(c.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		tc.RootCAs = x509.NewCertPool()
		if !tc.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", c.TLSCAFile)
		}
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

// ReaderConfig builds the kafka-go reader settings for one ingest topic.
// Errors reported by the reader go to errorLog.
func (c *Config) ReaderConfig(topic string, dialer *kafkago.Dialer, errorLog kafkago.Logger) kafkago.ReaderConfig {
	return kafkago.ReaderConfig{
		Brokers:           c.Brokers,
		Topic:             topic,
		GroupID:           c.GroupID,
		Dialer:            dialer,
		StartOffset:       ResolveStartOffset(c.StartOffset),
		MinBytes:          c.MinBytes,
		MaxBytes:          c.MaxBytes,
		MaxWait:           ParseDuration(c.MaxWait),
		CommitInterval:    ParseDuration(c.CommitInterval),
		SessionTimeout:    ParseDuration(c.SessionTimeout),
		HeartbeatInterval: ParseDuration(c.HeartbeatInterval),
		RebalanceTimeout:  ParseDuration(c.RebalanceTimeout),
		ErrorLogger:       errorLog,
	}
}
