package sse

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

func TestReader_RoundTrip(t *testing.T) {
	var sb strings.Builder
	events := []Event{
		{Type: EventTypeConnected, Data: []byte(`{"connection_id":"c-1"}`), Retry: 3 * time.Second},
		{ID: "42", Type: "order.created", Data: []byte("line one\nline two")},
		NewEvent("", []byte("plain")),
	}
	for _, ev := range events {
		_, _ = ev.WriteTo(&sb)
		_ = writeComment(&sb, "keep-alive")
	}

	r := NewReader(strings.NewReader(sb.String()))
	for i, want := range events {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if got.ID != want.ID || got.Type != want.Type || string(got.Data) != string(want.Data) || got.Retry != want.Retry {
			t.Errorf("event %d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_TrailingEventWithoutBlankLine(t *testing.T) {
	r := NewReader(strings.NewReader("event: x\ndata:no-space"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "x" || string(ev.Data) != "no-space" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestReader_IgnoresUnknownFieldsAndBadRetry(t *testing.T) {
	r := NewReader(strings.NewReader("foo: bar\nretry: soon\ndata: ok\n\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Retry != 0 || string(ev.Data) != "ok" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestReader_LineEndings(t *testing.T) {
	stream := "event: a\rdata: 1\r\ndata: 2\r\rid: 9\ndata: 3\n\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(stream)))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.Type != "a" || string(first.Data) != "1\n2" {
		t.Errorf("unexpected first event %+v", first)
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second.ID != "9" || string(second.Data) != "3" {
		t.Errorf("unexpected second event %+v", second)
	}
}

func TestReader_CarriageReturnInDataCannotAddFields(t *testing.T) {
	var sb strings.Builder
	_, _ = Event{Type: "note", Data: []byte("hi\revent: admin\rid: forged")}.WriteTo(&sb)

	ev, err := NewReader(strings.NewReader(sb.String())).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Type != "note" || ev.ID != "" {
		t.Errorf("payload leaked into fields: %+v", ev)
	}
	if string(ev.Data) != "hi\nevent: admin\nid: forged" {
		t.Errorf("unexpected data %q", ev.Data)
	}
}
