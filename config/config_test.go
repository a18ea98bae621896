package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/gokernel/errors"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "kernel"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.ConfigLoader != DefaultLoader {
			t.Errorf("expected loader %q, got %q", DefaultLoader, cfg.ConfigLoader)
		}
		if cfg.Status.Addr != ":4040" {
			t.Errorf("expected status addr ':4040', got %q", cfg.Status.Addr)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging level 'info', got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "kernel", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "kernel"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *ServiceConfig)
		wantErr bool
		errMsg  string
	}{
		{"valid development", func(c *ServiceConfig) {}, false, ""},
		{"valid staging", func(c *ServiceConfig) { c.Environment = "staging" }, false, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, true, "name: is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, true, "environment: must be one of"},
		{"invalid log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, true, "logging.level"},
		{"sample rate above one", func(c *ServiceConfig) { c.Telemetry.SampleRate = 1.5 }, true, "telemetry.sample_rate"},
		{"status without addr", func(c *ServiceConfig) {
			c.Status.Enabled = true
			c.Status.Addr = ""
		}, true, "status.addr"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
				if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
					t.Errorf("expected INVALID_INPUT, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestProvidersConfigIsDisabled(t *testing.T) {
	c := ProvidersConfig{Disabled: []string{"cache", "indexer"}}
	if !c.IsDisabled("cache") {
		t.Error("expected cache to be disabled")
	}
	if c.IsDisabled("api") {
		t.Error("expected api to be enabled")
	}
}

func TestLocalDriverLoadsYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: kernel
environment: staging
configLoader: local
status:
  enabled: true
  addr: "127.0.0.1:4041"
providers:
  disabled: [indexer]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	repo := NewRepository()
	driver := NewLocalDriver("kernel", WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err := driver.LoadConfiguration(context.Background(), repo); err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if got := repo.GetString("name", ""); got != "kernel" {
		t.Errorf("expected name 'kernel', got %q", got)
	}
	if !repo.GetBool("status.enabled", false) {
		t.Error("expected status.enabled=true")
	}

	cfg, err := Load(repo)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected staging, got %q", cfg.Environment)
	}
	if cfg.Status.Addr != "127.0.0.1:4041" {
		t.Errorf("expected status addr from file, got %q", cfg.Status.Addr)
	}
	if !cfg.Providers.IsDisabled("indexer") {
		t.Error("expected indexer to be disabled")
	}
}

func TestLocalDriverEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("status:\n  addr: \":4040\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("STATUS_ADDR", ":9090")

	repo := NewRepository()
	driver := NewLocalDriver("kernel", WithConfigFile(configPath), WithFileSystem(&RealFileSystem{}))
	if err := driver.LoadConfiguration(context.Background(), repo); err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if got := repo.GetString("status.addr", ""); got != ":9090" {
		t.Errorf("expected env override ':9090', got %q", got)
	}
}

func TestLocalDriverLoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("GOKERNEL_PROBE_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GOKERNEL_PROBE_VALUE") })

	repo := NewRepository()
	driver := NewLocalDriver("kernel", WithConfigFile(filepath.Join(dir, "missing.yml")), WithEnvFile(envPath))
	if err := driver.LoadConfiguration(context.Background(), repo); err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	if got := repo.GetString("gokernel.probe.value", ""); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestLocalDriverInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	driver := NewLocalDriver("kernel", WithConfigFile(configPath))
	err := driver.LoadConfiguration(context.Background(), NewRepository())
	if err == nil {
		t.Fatal("expected error for unreadable config file")
	}
	if !strings.Contains(err.Error(), configPath) {
		t.Errorf("expected error to name the file, got %q", err.Error())
	}
}

func TestLocalDriverNoFiles(t *testing.T) {
	driver := NewLocalDriver("kernel", WithFileSystem(&mockFS{files: map[string]bool{}}))
	if err := driver.LoadConfiguration(context.Background(), NewRepository()); err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestEnvDriver(t *testing.T) {
	repo := NewRepository()
	driver := NewEnvDriver(WithEnviron(map[string]string{
		"CORE_NAME":               "kernel",
		"CORE_ENVIRONMENT":        "production",
		"CORE_STATUS_ENABLED":     "true",
		"CORE_TELEMETRY_INTERVAL": "30s",
		"CORE_PROVIDERS_DISABLED": "cache,indexer",
	}))

	if err := driver.LoadConfiguration(context.Background(), repo); err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}

	cfg, err := Load(repo)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "kernel" || cfg.Environment != "production" {
		t.Errorf("unexpected identity %q/%q", cfg.Name, cfg.Environment)
	}
	if !cfg.Status.Enabled || cfg.Status.Addr != ":4040" {
		t.Errorf("unexpected status config %+v", cfg.Status)
	}
	if cfg.Telemetry.Interval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.Telemetry.Interval)
	}
	if !cfg.Providers.IsDisabled("cache") || !cfg.Providers.IsDisabled("indexer") {
		t.Errorf("expected cache and indexer disabled, got %v", cfg.Providers.Disabled)
	}
}

func TestEnvDriverPrefix(t *testing.T) {
	repo := NewRepository()
	driver := NewEnvDriver(
		WithEnvPrefix("NODE_"),
		WithEnviron(map[string]string{"NODE_NAME": "relay", "CORE_NAME": "ignored"}),
	)
	if err := driver.LoadConfiguration(context.Background(), repo); err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if got := repo.GetString("name", ""); got != "relay" {
		t.Errorf("expected 'relay', got %q", got)
	}
}

func TestEnvDriverInvalidValue(t *testing.T) {
	driver := NewEnvDriver(WithEnviron(map[string]string{"CORE_DEBUG": "sometimes"}))
	err := driver.LoadConfiguration(context.Background(), NewRepository())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse env") {
		t.Errorf("expected wrapped parse error, got %q", err.Error())
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/kernel/config.yml": true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("kernel", LoaderConfig{})
	if files.ConfigFile != "./cmd/kernel/config.yml" {
		t.Errorf("expected config file at ./cmd/kernel/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file at ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPaths(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{}}
	files := resolver.ResolveFiles("kernel", LoaderConfig{ConfigFile: "/etc/kernel.yml", EnvFile: "/etc/kernel.env"})
	if files.ConfigFile != "/etc/kernel.yml" || files.EnvFile != "/etc/kernel.env" {
		t.Errorf("expected explicit paths to win, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("STATUS_ADDR")
	want := map[string]bool{"status_addr": true, "status.addr": true}
	for _, v := range variants {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, variants)
	}

	if got := generateEnvKeyVariants("DEBUG"); len(got) != 1 || got[0] != "debug" {
		t.Errorf("expected [debug], got %v", got)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}
