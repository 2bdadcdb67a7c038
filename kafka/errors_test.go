package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/ssehub/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, Permanent},
		{"deadline", fmt.Errorf("publish: %w", context.DeadlineExceeded), Transient},
		{"relay down", apperrors.ServiceUnavailable("redis"), Unavailable},
		{"rate limited", apperrors.RateLimited(10), Transient},
		{"invalid record", apperrors.Validation("record value is not valid JSON"), Permanent},
		{"broker not available", kafkago.BrokerNotAvailable, Unavailable},
		{"wrapped leader election", fmt.Errorf("fetch: %w", kafkago.LeaderNotAvailable), Unavailable},
		{"temporary kafka error", kafkago.RequestTimedOut, Transient},
		{"message too large", kafkago.MessageSizeTooLarge, Permanent},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, Unavailable},
		{"unexpected eof", io.ErrUnexpectedEOF, Unavailable},
		{"flattened dial failure", errors.New("dial tcp 127.0.0.1:9092: connection refused"), Unavailable},
		{"unknown", errors.New("template missing"), Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClass_Retryable(t *testing.T) {
	if !Transient.Retryable() || !Unavailable.Retryable() || Permanent.Retryable() {
		t.Error("only permanent failures should be final")
	}
	if Transient.String() != "transient" || Unavailable.String() != "unavailable" || Permanent.String() != "permanent" {
		t.Error("unexpected class names")
	}
}
