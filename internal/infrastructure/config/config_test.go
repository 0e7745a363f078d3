package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
gateway:
  id: "edge-test"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
plugins:
  dir: "/opt/grayedge/plugins"
  autoload:
    - name: "modbus_tcp"
      path: "/opt/grayedge/plugins/modbus_tcp.so"
dispatch:
  driver_timeout_ms: 2000
  shadow_ttl_ms: 10000
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gateway.ID != "edge-test" {
		t.Errorf("Gateway.ID = %q, want %q", cfg.Gateway.ID, "edge-test")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Plugins.Dir != "/opt/grayedge/plugins" {
		t.Errorf("Plugins.Dir = %q, want %q", cfg.Plugins.Dir, "/opt/grayedge/plugins")
	}
	if len(cfg.Plugins.Autoload) != 1 || cfg.Plugins.Autoload[0].Name != "modbus_tcp" {
		t.Errorf("Plugins.Autoload = %+v, want one modbus_tcp entry", cfg.Plugins.Autoload)
	}
	if got := cfg.Dispatch.DriverTimeoutDuration().Milliseconds(); got != 2000 {
		t.Errorf("DriverTimeoutDuration = %dms, want 2000ms", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port default = %d, want 8080", cfg.API.Port)
	}
	if cfg.Dispatch.DriverTimeout != 5000 {
		t.Errorf("Dispatch.DriverTimeout default = %d, want 5000", cfg.Dispatch.DriverTimeout)
	}
	if cfg.Dispatch.ShadowTTL != 30000 {
		t.Errorf("Dispatch.ShadowTTL default = %d, want 30000", cfg.Dispatch.ShadowTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level default = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
database:
  path: "/tmp/file.db"
security:
  jwt:
    secret: "file-secret-that-is-long-enough-123"
`
	t.Setenv("GRAYEDGE_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("GRAYEDGE_JWT_SECRET", testJWTSecret)

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override /tmp/env.db", cfg.Database.Path)
	}
	if cfg.Security.JWT.Secret != testJWTSecret {
		t.Errorf("JWT.Secret not overridden by environment")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			"missing jwt secret",
			func(c *Config) { c.Security.JWT.Secret = "" },
			"security.jwt.secret is required",
		},
		{
			"short jwt secret",
			func(c *Config) { c.Security.JWT.Secret = "short" },
			"at least 32 characters",
		},
		{
			"bad port",
			func(c *Config) { c.API.Port = 0 },
			"api.port",
		},
		{
			"zero driver timeout",
			func(c *Config) { c.Dispatch.DriverTimeout = 0 },
			"driver_timeout_ms",
		},
		{
			"autoload entry without path",
			func(c *Config) { c.Plugins.Autoload = []PluginSpec{{Name: "modbus"}} },
			"plugins.autoload[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = testJWTSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}
