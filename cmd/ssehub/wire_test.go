package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/ssehub/bootstrap"
	"github.com/kbukum/ssehub/config"
	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/redis"
	"github.com/kbukum/ssehub/relay"
	"github.com/kbukum/ssehub/server"
	"github.com/kbukum/ssehub/sse"
)

func newHub(t *testing.T) *hubApp {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.AppConfig{
		Database: database.Config{Enabled: true, DSN: ":memory:", AutoMigrate: true, MaxOpenConns: 1, MaxIdleConns: 1},
		Redis:    redis.Config{Enabled: true, Addr: mr.Addr()},
		Relay:    relay.Config{Enabled: true, Prefix: "test"},
		Server:   server.Config{Host: "127.0.0.1", ShutdownTimeout: 2},
	}
	app, err := bootstrap.NewApp(cfg,
		bootstrap.WithLogger(logger.Nop()),
		bootstrap.WithSummaryOutput(io.Discard),
		bootstrap.WithGracefulTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	// Defaults picked 8080; bind an ephemeral port instead.
	app.Cfg.Server.Port = 0

	if err := wire(app); err != nil {
		t.Fatalf("wire: %v", err)
	}
	return app
}

func serverAddr(t *testing.T, app *hubApp) string {
	t.Helper()
	c, ok := app.Components.Get("http-server").(*server.Component)
	if !ok {
		t.Fatal("http-server component not registered")
	}
	return "http://" + c.Server().Addr()
}

func TestWire_RegistersComponentsInOrder(t *testing.T) {
	app := newHub(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		var names []string
		for _, c := range app.Components.All() {
			names = append(names, c.Name())
		}
		if got := strings.Join(names, ","); got != "database,redis,sse,relay,http-server" {
			t.Errorf("unexpected component order %s", got)
		}
		if err := app.ReadyCheck(ctx); err != nil {
			t.Errorf("expected every component to be healthy: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
}

func TestWire_PublishThroughRelay(t *testing.T) {
	app := newHub(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		base := serverAddr(t, app)

		health, err := http.Get(base + "/health")
		if err != nil {
			t.Fatalf("health: %v", err)
		}
		health.Body.Close()
		if health.StatusCode != http.StatusOK {
			t.Fatalf("expected healthy service, got %d", health.StatusCode)
		}

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/events?channel=orders", nil)
		req.Header.Set("X-User-ID", "u1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("open stream: %v", err)
		}
		defer resp.Body.Close()

		events := make(chan sse.Event, 16)
		go func() {
			defer close(events)
			r := sse.NewReader(resp.Body)
			for {
				ev, err := r.Next()
				if err != nil {
					return
				}
				events <- ev
			}
		}()
		waitFor := func(eventType string) sse.Event {
			timeout := time.After(3 * time.Second)
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						t.Fatalf("stream ended before %q", eventType)
					}
					if ev.Type == eventType {
						return ev
					}
				case <-timeout:
					t.Fatalf("timed out waiting for %q", eventType)
				}
			}
		}
		waitFor(sse.EventTypeConnected)

		pub, err := http.Post(base+"/channels/orders/events", "application/json",
			strings.NewReader(`{"type":"order.created","data":{"id":7}}`))
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		pub.Body.Close()
		if pub.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", pub.StatusCode)
		}

		if ev := waitFor("order.created"); string(ev.Data) != `{"id":7}` {
			t.Errorf("unexpected data %q", ev.Data)
		}

		presence, err := http.Get(base + "/users/u1/presence")
		if err != nil {
			t.Fatalf("presence: %v", err)
		}
		defer presence.Body.Close()
		var body struct {
			Data []map[string]any `json:"data"`
		}
		if err := json.NewDecoder(presence.Body).Decode(&body); err != nil {
			t.Fatalf("decode presence: %v", err)
		}
		if len(body.Data) != 1 || body.Data[0]["user_id"] != "u1" {
			t.Errorf("expected one online connection for u1, got %v", body.Data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
}

func TestInstanceName(t *testing.T) {
	if instanceName() == "" {
		t.Error("expected a non-empty instance name")
	}
}

func TestPrintEvents(t *testing.T) {
	stream := sse.NewEvent(sse.EventTypeConnected, []byte(`{"connection_id":"c-1"}`)).String() +
		": keep-alive\n\n" +
		sse.Event{ID: "7", Type: "order.created", Data: []byte("hi")}.String()

	var out strings.Builder
	if err := printEvents(&out, sse.NewReader(strings.NewReader(stream))); err != nil {
		t.Fatalf("printEvents: %v", err)
	}
	want := "[connected] {\"connection_id\":\"c-1\"}\n[order.created] id=7 hi\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
