package kafka

import (
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestConfig_Dialer(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantTLS  bool
		wantSASL bool
		wantErr  string
	}{
		{name: "plain", cfg: Config{DialTimeout: "5s"}},
		{name: "tls skip verify", cfg: Config{EnableTLS: true, TLSSkipVerify: true}, wantTLS: true},
		{name: "missing ca file", cfg: Config{EnableTLS: true, TLSCAFile: "/nonexistent/ca.pem"}, wantErr: "read ca file"},
		{name: "sasl plain", cfg: Config{EnableSASL: true, SASLMechanism: "PLAIN", Username: "hub", Password: "pw"}, wantSASL: true},
		{name: "sasl scram", cfg: Config{EnableSASL: true, SASLMechanism: "SCRAM-SHA-512", Username: "hub", Password: "pw"}, wantSASL: true},
		{name: "sasl unsupported", cfg: Config{EnableSASL: true, SASLMechanism: "GSSAPI"}, wantErr: "SCRAM-SHA-256"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.cfg.Dialer()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Dialer() error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Dialer() error: %v", err)
			}
			if (d.TLS != nil) != tt.wantTLS || (d.SASLMechanism != nil) != tt.wantSASL {
				t.Errorf("TLS=%v SASL=%v, want %v/%v", d.TLS != nil, d.SASLMechanism != nil, tt.wantTLS, tt.wantSASL)
			}
		})
	}
}

func TestConfig_DialerTimeout(t *testing.T) {
	cfg := Config{DialTimeout: "750ms"}
	d, err := cfg.Dialer()
	if err != nil {
		t.Fatalf("Dialer() error: %v", err)
	}
	if d.Timeout != 750*time.Millisecond {
		t.Errorf("Timeout = %v", d.Timeout)
	}
}

func TestConfig_ReaderConfig(t *testing.T) {
	cfg := Config{Enabled: true, Brokers: []string{"k1:9092"}, GroupID: "hub-eu", StartOffset: "first"}
	cfg.ApplyDefaults()

	rc := cfg.ReaderConfig("notifications", &kafkago.Dialer{}, nil)
	if rc.Topic != "notifications" || rc.GroupID != "hub-eu" || rc.Brokers[0] != "k1:9092" {
		t.Errorf("unexpected reader config %+v", rc)
	}
	if rc.StartOffset != kafkago.FirstOffset || rc.MaxWait != 500*time.Millisecond || rc.SessionTimeout != 30*time.Second {
		t.Errorf("unexpected timing %+v", rc)
	}
}

func TestResolveStartOffset(t *testing.T) {
	if ResolveStartOffset("first") != kafkago.FirstOffset {
		t.Error("first should map to FirstOffset")
	}
	if ResolveStartOffset("last") != kafkago.LastOffset || ResolveStartOffset("") != kafkago.LastOffset {
		t.Error("anything else should map to LastOffset")
	}
}
