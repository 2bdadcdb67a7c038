package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l := NewWithWriter(&Config{Level: level, Format: FormatJSON}, "ssehub", buf)
	return l, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, line)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestJSONOutputCarriesFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.Info("subscribed", Fields(FieldChannel, "orders", FieldConnectionID, "c-1"))

	out := decodeLine(t, buf)
	if out["message"] != "subscribed" {
		t.Errorf("unexpected message %v", out["message"])
	}
	if out[FieldChannel] != "orders" || out[FieldConnectionID] != "c-1" {
		t.Errorf("missing fields in %v", out)
	}
	if out[FieldService] != "ssehub" {
		t.Errorf("expected service tag, got %v", out[FieldService])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn to be written")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSONLogger(t, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info level, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithComponent("sse").Info("hello")
	if out := decodeLine(t, buf); out[FieldComponent] != "sse" {
		t.Errorf("expected component field, got %v", out)
	}
}

func TestWithContext(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	ctx := ContextWith(context.Background(), FieldRequestID, "req-1")
	l.WithContext(ctx).Info("hello")
	if out := decodeLine(t, buf); out[FieldRequestID] != "req-1" {
		t.Errorf("expected request id, got %v", out)
	}
}

func TestWithErrorAndFields(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(errors.New("boom")).WithFields(map[string]interface{}{"k": "v"}).Error("failed")
	out := decodeLine(t, buf)
	if out["error"] != "boom" || out["k"] != "v" {
		t.Errorf("unexpected output %v", out)
	}
}

func TestNop(t *testing.T) {
	Nop().Info("nothing", Fields("a", 1))
}

func TestGlobalLogger(t *testing.T) {
	custom := NewDefault("custom")
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected SetGlobalLogger to set the global logger")
	}

	Init(Config{Level: "debug", Format: FormatJSON, ServiceName: "svc"})
	if GetGlobalLogger() == custom {
		t.Error("expected Init to replace the global logger")
	}
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
}

func TestRegistryFallsBackToGlobal(t *testing.T) {
	l := NewDefault("x")
	Register("relay", l)
	if Get("relay") != l {
		t.Error("expected registered logger")
	}
	if Get("unknown") == nil {
		t.Error("expected fallback logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	f := ErrorFields("publish", errors.New("x"))
	if f[FieldOperation] != "publish" || f[FieldError] != "x" {
		t.Errorf("unexpected %v", f)
	}
	d := DurationFields("flush", 1500*time.Millisecond)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("unexpected %v", d)
	}
	if len(Fields("odd")) != 0 {
		t.Error("dangling key should be ignored")
	}
}
