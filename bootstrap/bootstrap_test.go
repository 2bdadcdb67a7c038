package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/ssehub/component"
	"github.com/kbukum/ssehub/config"
	"github.com/kbukum/ssehub/logger"
)

// testConfig is a minimal config that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

// mockDescribableComponent implements Component, Describable and RouteProvider.
type mockDescribableComponent struct {
	mockComponent
	desc   component.Description
	routes []component.Route
}

func (m *mockDescribableComponent) Describe() component.Description { return m.desc }
func (m *mockDescribableComponent) Routes() []component.Route       { return m.routes }

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(io.Discard)}, opts...)
	app, err := NewApp(newTestConfig("test", "1.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func healthy(name string) *mockComponent {
	return &mockComponent{name: name, health: component.Health{Name: name, Status: component.StatusHealthy}}
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), WithSummaryOutput(io.Discard))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %q %q", app.Name, app.Version)
	}
	if app.Components == nil || app.Logger == nil || app.Summary == nil {
		t.Fatal("expected registry, logger and summary")
	}
	if app.Cfg.Logging.Level == "" {
		t.Error("expected logging defaults to be applied")
	}
	if app.gracefulTimeout != defaultGracefulTimeout {
		t.Errorf("expected default timeout, got %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Environment = "qa"
	if _, err := NewApp(cfg); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewAppOptions(t *testing.T) {
	custom := logger.Nop()
	app := newTestApp(t, WithGracefulTimeout(30*time.Second), WithLogger(custom))
	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if app.Logger != custom {
		t.Error("expected custom logger")
	}
}

func TestRegisterComponent(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(healthy("db")); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if app.Components.Get("db") == nil {
		t.Error("expected component to be registered")
	}
	if err := app.RegisterComponent(healthy("db")); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRunHooks(t *testing.T) {
	var order []string
	hooks := []Hook{
		func(ctx context.Context) error { order = append(order, "first"); return nil },
		func(ctx context.Context) error { order = append(order, "second"); return fmt.Errorf("fail") },
		func(ctx context.Context) error { order = append(order, "third"); return nil },
	}
	if err := runHooks(context.Background(), hooks); err == nil {
		t.Error("expected error from failing hook")
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("expected execution to stop at the failing hook, got %v", order)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"disabled", component.StatusDisabled, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			_ = app.RegisterComponent(healthy("db"))
			_ = app.RegisterComponent(&mockComponent{
				name:   "redis",
				health: component.Health{Name: "redis", Status: tc.status, Message: "x"},
			})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("ReadyCheck() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}

	if err := newTestApp(t).ReadyCheck(context.Background()); err != nil {
		t.Errorf("expected empty registry to be ready, got %v", err)
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	comp := healthy("db")
	_ = app.RegisterComponent(comp)

	var order []string
	app.OnStart(func(ctx context.Context) error { order = append(order, "start"); return nil })
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		if a.Cfg.Name != "test" {
			t.Errorf("expected typed config, got %q", a.Cfg.Name)
		}
		order = append(order, "configure")
		return nil
	})
	app.OnReady(func(ctx context.Context) error { order = append(order, "ready"); return nil })
	app.OnStop(func(ctx context.Context) error { order = append(order, "stop"); return nil })

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if !comp.started {
			t.Error("expected component to be started before the task")
		}
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if got := strings.Join(order, ","); got != "start,configure,ready,task,stop" {
		t.Errorf("unexpected order %s", got)
	}
	if !comp.stopped {
		t.Error("expected component to be stopped after the task")
	}
}

func TestConfigureRegistersLateComponents(t *testing.T) {
	app := newTestApp(t)
	infra := healthy("redis")
	late := healthy("http-server")
	_ = app.RegisterComponent(infra)

	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		if !infra.started {
			t.Error("expected infrastructure to be started before configure")
		}
		return a.RegisterComponent(late)
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if !late.started {
			t.Error("expected late component to be started before the task")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !late.stopped || !infra.stopped {
		t.Error("expected every component to be stopped")
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err == nil {
		t.Error("expected error from canceled task")
	}
}

func TestRunTaskStartupFailures(t *testing.T) {
	fail := func(ctx context.Context) error { return fmt.Errorf("boom") }
	tests := []struct {
		name  string
		setup func(app *App[*testConfig])
	}{
		{"start hook", func(app *App[*testConfig]) { app.OnStart(fail) }},
		{"configure", func(app *App[*testConfig]) {
			app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error { return fail(ctx) })
		}},
		{"ready hook", func(app *App[*testConfig]) { app.OnReady(fail) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			comp := healthy("db")
			_ = app.RegisterComponent(comp)
			tc.setup(app)

			taskRan := false
			err := app.RunTask(context.Background(), func(ctx context.Context) error {
				taskRan = true
				return nil
			})
			if err == nil {
				t.Fatal("expected startup error")
			}
			if taskRan {
				t.Error("task must not run after a failed startup")
			}
			if !comp.stopped {
				t.Error("expected started components to be stopped after a failed startup")
			}
		})
	}
}

func TestRunTaskComponentStartError(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "bad", startErr: fmt.Errorf("start failed")})

	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("expected error from component start failure")
	}
}

func TestRunTaskStopErrors(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{
		name:    "db",
		stopErr: fmt.Errorf("stop failed"),
		health:  component.Health{Name: "db", Status: component.StatusHealthy},
	})
	app.OnStop(func(ctx context.Context) error { return fmt.Errorf("stop hook failed") })

	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected shutdown error")
	}
	if !strings.Contains(err.Error(), "stop hook failed") || !strings.Contains(err.Error(), "stop failed") {
		t.Errorf("expected both errors to be reported, got %v", err)
	}
}

func TestShutdownAfterRunTask(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(healthy("db"))
	_ = app.RunTask(context.Background(), func(ctx context.Context) error { return nil })

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	comp := healthy("db")
	_ = app.RegisterComponent(comp)

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error {
		cancel()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if !comp.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestWaitForSignalContextCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if sig := app.WaitForSignal(ctx); sig != nil {
		t.Errorf("expected nil signal for context cancellation, got %v", sig)
	}
}

func TestSummaryCollectFromRegistry(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary("ssehub", "1.0.0")
	s.SetOutput(&buf)
	s.SetStartupDuration(100 * time.Millisecond)
	s.TrackConsumer("kafka-ingest", "ssehub", "orders", "active")

	registry := component.NewRegistry()
	_ = registry.Register(&mockDescribableComponent{
		mockComponent: *healthy("http-server"),
		desc:          component.Description{Name: "HTTP Server", Type: "server", Details: "127.0.0.1:8080 (h2c)"},
		routes: []component.Route{
			{Method: "GET", Path: "/events", Handler: "Stream"},
			{Method: "POST", Path: "/channels/:channel/events", Handler: "Publish"},
		},
	})
	_ = registry.Register(&mockComponent{
		name:   "redis",
		health: component.Health{Name: "redis", Status: component.StatusUnhealthy, Message: "connection refused"},
	})

	s.DisplaySummary(context.Background(), registry)

	if len(s.infrastructure) != 1 || s.infrastructure[0].Name != "HTTP Server" {
		t.Errorf("expected describable component to be collected, got %+v", s.infrastructure)
	}
	if len(s.routes) != 2 {
		t.Errorf("expected 2 routes, got %d", len(s.routes))
	}

	out := buf.String()
	for _, want := range []string{"ssehub 1.0.0", "HTTP Server", "/channels/:channel/events", "orders", "connection refused", "1/2 healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryEmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary("ssehub", "dev")
	s.SetOutput(&buf)
	s.DisplaySummary(context.Background(), nil)
	if !strings.Contains(buf.String(), "No components registered") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if p := treePrefix(2, 3); p != "└──" {
		t.Errorf("expected '└──' for last item, got %q", p)
	}
	if p := treePrefix(0, 3); p != "├──" {
		t.Errorf("expected '├──' for non-last item, got %q", p)
	}
}

func TestHealthStatusIcon(t *testing.T) {
	tests := []struct {
		status component.HealthStatus
		icon   string
	}{
		{component.StatusHealthy, "✅"},
		{component.StatusDegraded, "⚠️"},
		{component.StatusUnhealthy, "❌"},
		{component.StatusDisabled, "⏸️"},
		{"unknown", "❓"},
	}
	for _, tc := range tests {
		if got := healthStatusIcon(tc.status); got != tc.icon {
			t.Errorf("healthStatusIcon(%q) = %q, expected %q", tc.status, got, tc.icon)
		}
	}
}
