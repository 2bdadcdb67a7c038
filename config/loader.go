package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file access for the loader (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise searches the
// standard locations.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configSearchPaths(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(envSearchPaths(serviceName))
	}
	return resolved
}

func (cr *Resolver) first(paths []string) string {
	for _, p := range paths {
		if cr.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
		fmt.Sprintf("/etc/%s/config.yml", serviceName),
	}
}

func envSearchPaths(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		paths = append(paths,
			fmt.Sprintf("./cmd/%s/%s", serviceName, name),
			fmt.Sprintf("../cmd/%s/%s", serviceName, name),
			"./config/"+name,
			"./"+name,
		)
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into cfg. Precedence, lowest
// first: config.yml, the .env file, the process environment. An explicitly
// requested file that is missing or unreadable is an error; files found by
// searching are best effort.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	if lc.ConfigFile != "" && !lc.FileSystem.Exists(lc.ConfigFile) {
		return fmt.Errorf("config file %s not found", lc.ConfigFile)
	}
	if lc.EnvFile != "" && !lc.FileSystem.Exists(lc.EnvFile) {
		return fmt.Errorf("env file %s not found", lc.EnvFile)
	}
	return loadFromResolvedFiles(serviceName, cfg, files, lc)
}

func loadFromResolvedFiles(serviceName string, cfg interface{}, files ResolvedFiles, lc LoaderConfig) error {
	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			if lc.ConfigFile != "" {
				return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
			}
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load config file %s: %v\n", files.ConfigFile, err)
		}
	}

	// .env values become process env vars, so they are bound below together
	// with the real environment.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			if lc.EnvFile != "" {
				return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
			}
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load .env file %s: %v\n", files.EnvFile, err)
		}
	}

	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv maps KEY=value pairs onto viper keys. Because config keys contain
// underscores themselves, every split of the variable name is bound:
// SSE_KEEP_ALIVE sets sse.keep_alive, sse.keep.alive, sse_keep.alive...
// Only the variant matching a real struct field has any effect.
func bindEnv(v *viper.Viper, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants lists the dotted keys an env var name can stand for, up to
// three levels deep.
//
//	KAFKA_GROUP_ID -> kafka_group_id, kafka.group_id, kafka_group.id, kafka.group.id
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) == 1 {
		return parts
	}

	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(strings.Join(parts, "_"))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "_"))
		for j := i + 1; j < len(parts); j++ {
			add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:j], "_") + "." + strings.Join(parts[j:], "_"))
		}
	}
	return out
}
