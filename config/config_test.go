package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty config", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Name != "ssehub" || cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if cfg.Version == "" {
			t.Error("expected version from build info")
		}
		if cfg.Logging.ServiceName != "ssehub" || cfg.Logging.Level != "info" {
			t.Errorf("unexpected logging defaults %+v", cfg.Logging)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "svc", Environment: "staging"}
		c.Logging.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name is required"},
		{"bad environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment must be one of"},
		{"bad log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestAppConfig_DefaultsValidate(t *testing.T) {
	var cfg AppConfig
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.SSE.Path != "/events" || cfg.Server.Port != 8080 || cfg.Relay.Topic() != "ssehub:events" {
		t.Errorf("unexpected defaults: sse=%+v server=%+v", cfg.SSE, cfg.Server)
	}
	if cfg.Observability.ServiceVersion != cfg.Version {
		t.Errorf("expected observability version %q, got %q", cfg.Version, cfg.Observability.ServiceVersion)
	}
}

func TestAppConfig_ValidateCollectsErrors(t *testing.T) {
	var cfg AppConfig
	cfg.ApplyDefaults()
	cfg.Relay.Enabled = true
	cfg.SSE.KeepAlive = "soon"
	cfg.Kafka.Enabled = true
	cfg.Kafka.Topics = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"relay: requires redis.enabled", "sse:", "kafka:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: ssehub-test
environment: staging
server:
  port: 8081
sse:
  keep_alive: 20s
  queue_size: 32
redis:
  enabled: true
  addr: redis:6379
kafka:
  topics: [orders]
`)
	t.Setenv("SSE_KEEP_ALIVE", "15s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_GROUP_ID", "edge")

	var cfg AppConfig
	if err := LoadConfig("ssehub", &cfg, WithConfigFile(path), WithFileSystem(RealFileSystem{})); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Name != "ssehub-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.SSE.KeepAlive != "15s" || cfg.SSE.QueueSize != 32 {
		t.Errorf("env should override yaml: %+v", cfg.SSE)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected redis %+v", cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.GroupID != "edge" || len(cfg.Kafka.Topics) != 1 {
		t.Errorf("unexpected kafka %+v", cfg.Kafka)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "RELAY_PREFIX=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("RELAY_PREFIX") })

	var cfg AppConfig
	if err := LoadConfig("ssehub", &cfg, WithEnvFile(envPath), WithFileSystem(&mockFS{
		files: map[string]bool{envPath: true},
		load:  RealFileSystem{}.LoadEnv,
	})); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Relay.Prefix != "from-dotenv" {
		t.Errorf("expected prefix from .env, got %q", cfg.Relay.Prefix)
	}
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	var cfg AppConfig
	if err := LoadConfig("ssehub", &cfg, WithConfigFile("/nonexistent/config.yml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
	if err := LoadConfig("ssehub", &cfg, WithEnvFile("/nonexistent/.env")); err == nil {
		t.Fatal("expected an error for a missing explicit env file")
	}
}

func TestLoadConfig_NothingFound(t *testing.T) {
	var cfg AppConfig
	if err := LoadConfig("ssehub", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("searching without results should succeed: %v", err)
	}
}

func TestLoadConfig_MalformedExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "server: [unclosed\n")
	var cfg AppConfig
	if err := LoadConfig("ssehub", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected a parse error")
	}
}

type mockFS struct {
	files map[string]bool
	load  func(string) error
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	if m.load != nil {
		return m.load(path)
	}
	return nil
}

func TestResolver_SearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/ssehub/config.yml": true,
		"./config.yml":            true,
		"./.env":                  true,
		"./config/.env.ssehub":    true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("ssehub", LoaderConfig{})
	if files.ConfigFile != "./cmd/ssehub/config.yml" {
		t.Errorf("expected cmd config first, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./config/.env.ssehub" {
		t.Errorf("expected service-specific env file first, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("ssehub", LoaderConfig{ConfigFile: "/x.yml", EnvFile: "/x.env"})
	if explicit.ConfigFile != "/x.yml" || explicit.EnvFile != "/x.env" {
		t.Errorf("explicit paths must win, got %+v", explicit)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("KAFKA_GROUP_ID")
	want := map[string]bool{
		"kafka_group_id": true,
		"kafka.group_id": true,
		"kafka_group.id": true,
		"kafka.group.id": true,
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected variants %v", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}

	if got := envKeyVariants("HOME"); len(got) != 1 || got[0] != "home" {
		t.Errorf("single-part keys map to themselves, got %v", got)
	}
}

func TestAppConfig_WriteResolved(t *testing.T) {
	var cfg AppConfig
	cfg.Name = "ssehub-test"
	cfg.Redis.Password = "hunter2"
	cfg.Kafka.Password = "s3cret"
	cfg.Database.DSN = "postgres://hub:pw@db:5432/ssehub"
	cfg.ApplyDefaults()

	var buf strings.Builder
	if err := cfg.WriteResolved(&buf); err != nil {
		t.Fatalf("WriteResolved: %v", err)
	}
	out := buf.String()
	for _, secret := range []string{"hunter2", "s3cret", ":pw@"} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked:\n%s", secret, out)
		}
	}

	var back map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if back["name"] != "ssehub-test" {
		t.Errorf("service keys should sit at the top level, got name=%v", back["name"])
	}
	sse, _ := back["sse"].(map[string]interface{})
	if sse["storage_timeout"] != "5s" || sse["path"] != "/events" {
		t.Errorf("expected sse defaults, got %v", sse)
	}
	kafka, _ := back["kafka"].(map[string]interface{})
	if kafka["handler_attempts"] != 3 || kafka["password"] != redactedValue {
		t.Errorf("unexpected kafka section %v", kafka)
	}
	db, _ := back["database"].(map[string]interface{})
	if db["dsn"] != "postgres://hub:xxxxx@db:5432/ssehub" {
		t.Errorf("unexpected dsn %v", db["dsn"])
	}
	for _, section := range []string{"server", "redis", "relay", "observability", "logging"} {
		if _, ok := back[section].(map[string]interface{}); !ok {
			t.Errorf("missing section %q", section)
		}
	}
}
