package kafka

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/ssehub/errors"
)

// Class groups the failures seen while ingesting records. It decides whether
// a record is handled again or committed and skipped.
type Class int

const (
	// Transient failures may pass when the same record is handled again.
	Transient Class = iota
	// Unavailable means a broker or a downstream dependency cannot be reached.
	Unavailable
	// Permanent failures repeat on every attempt; the record is skipped.
	Permanent
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Unavailable:
		return "unavailable"
	default:
		return "permanent"
	}
}

// Retryable reports whether a record failing with this class is worth
// another attempt.
func (c Class) Retryable() bool { return c != Permanent }

// unreachable matches errors that only reach us as text, such as dialer
// failures flattened by kafka-go's reader.
var unreachable = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no route to host",
	"broker not available",
	"dial tcp",
}

// Classify inspects an error from the reader or from the record handler.
func Classify(err error) Class {
	if err == nil {
		return Permanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		switch {
		case appErr.Code == apperrors.ErrCodeServiceUnavailable:
			return Unavailable
		case appErr.Retryable:
			return Transient
		default:
			return Permanent
		}
	}

	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		switch {
		case kerr == kafkago.BrokerNotAvailable, kerr == kafkago.LeaderNotAvailable, kerr == kafkago.NetworkException:
			return Unavailable
		case kerr.Temporary():
			return Transient
		default:
			return Permanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Unavailable
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range unreachable {
		if strings.Contains(msg, marker) {
			return Unavailable
		}
	}
	return Permanent
}
