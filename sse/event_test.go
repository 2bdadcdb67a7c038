package sse

import (
	"testing"
	"time"
)

func TestEvent_WireFormat(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "data only",
			ev:   Event{Data: []byte("hello")},
			want: "data: hello\n\n",
		},
		{
			name: "all fields",
			ev:   Event{ID: "7", Type: "update", Data: []byte("x"), Retry: 3 * time.Second},
			want: "id: 7\nevent: update\nretry: 3000\ndata: x\n\n",
		},
		{
			name: "multi-line data",
			ev:   Event{Type: "log", Data: []byte("a\r\nb\nc")},
			want: "event: log\ndata: a\ndata: b\ndata: c\n\n",
		},
		{
			name: "lone carriage return splits data",
			ev:   Event{Data: []byte("hi\revent: admin\rid: forged")},
			want: "data: hi\ndata: event: admin\ndata: id: forged\n\n",
		},
		{
			name: "carriage return in id is stripped",
			ev:   Event{ID: "1\rretry: 1", Data: []byte("x")},
			want: "id: 1retry: 1\ndata: x\n\n",
		},
		{
			name: "newline in type is stripped",
			ev:   Event{Type: "bad\ntype", Data: []byte("x")},
			want: "event: badtype\ndata: x\n\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewJSONEvent(t *testing.T) {
	ev, err := NewJSONEvent("order.updated", map[string]int{"id": 42})
	if err != nil {
		t.Fatalf("NewJSONEvent: %v", err)
	}
	if ev.Type != "order.updated" || string(ev.Data) != `{"id":42}` {
		t.Errorf("unexpected event %+v", ev)
	}

	if _, err := NewJSONEvent("bad", make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}
