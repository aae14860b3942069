package goAuthClient

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Provider.URL = "https://project.example.co"
	cfg.Provider.AnonKey = "anon"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with provider", func(*Config) {}, ""},
		{"missing url", func(c *Config) { c.Provider.URL = "" }, "Provider URL is required"},
		{"relative url", func(c *Config) { c.Provider.URL = "project.example.co" }, "absolute URL"},
		{"missing key", func(c *Config) { c.Provider.AnonKey = " " }, "AnonKey is required"},
		{"bad verification base", func(c *Config) { c.Verification.BaseURL = "/functions" }, "Verification BaseURL"},
		{"send limit without max", func(c *Config) {
			c.Verification.SendLimit.Enabled = true
			c.Verification.SendLimit.MaxSends = 0
		}, "MaxSends"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "file" }, "Session Backend"},
		{"sqlite without dsn", func(c *Config) { c.Profile.Driver = "sqlite" }, "Profile DSN is required for sqlite"},
		{"sqlite with dsn", func(c *Config) {
			c.Profile.Driver = "sqlite"
			c.Profile.DSN = "file::memory:"
		}, ""},
		{"relative redirect", func(c *Config) { c.Callback.RedirectPath = "login" }, "RedirectPath"},
		{"negative delay", func(c *Config) { c.Callback.RedirectDelay = -time.Second }, "RedirectDelay"},
		{"audit without buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "Audit BufferSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authflow.yaml")
	body := `
provider:
  url: https://project.example.co
  anon_key: anon
  timeout: 5s
verification:
  send_limit:
    enabled: true
    max_sends: 3
    window: 2m
callback:
  redirect_delay: 500ms
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Provider.Timeout != 5*time.Second || cfg.Callback.RedirectDelay != 500*time.Millisecond {
		t.Fatalf("durations not parsed: %+v", cfg)
	}
	if !cfg.Verification.SendLimit.Enabled || cfg.Verification.SendLimit.MaxSends != 3 || cfg.Verification.SendLimit.Window != 2*time.Minute {
		t.Fatalf("send limit not parsed: %+v", cfg.Verification.SendLimit)
	}
	// Absent keys keep defaults.
	if cfg.Callback.RedirectPath != "/login" || cfg.Session.Backend != "memory" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("AUTHFLOW_PROVIDER_URL", "https://env.example.co")
	t.Setenv("AUTHFLOW_PROVIDER_ANON_KEY", "env-key")
	t.Setenv("AUTHFLOW_SESSION_BACKEND", "redis")
	t.Setenv("AUTHFLOW_SESSION_REDIS_ADDR", "127.0.0.1:6380")
	t.Setenv("AUTHFLOW_VERIFICATION_SEND_LIMIT_WINDOW", "90s")
	t.Setenv("AUTHFLOW_CALLBACK_REDIRECT_PATH", "/signin")

	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte("AUTHFLOW_LOG_LEVEL=debug\nAUTHFLOW_PROVIDER_ANON_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("AUTHFLOW_LOG_LEVEL") })

	cfg, err := LoadConfigEnv(DefaultConfig(), dotenv, filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("LoadConfigEnv: %v", err)
	}
	if cfg.Provider.URL != "https://env.example.co" || cfg.Provider.AnonKey != "env-key" {
		t.Fatalf("provider not overlaid: %+v", cfg.Provider)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.RedisAddr != "127.0.0.1:6380" {
		t.Fatalf("session not overlaid: %+v", cfg.Session)
	}
	if cfg.Verification.SendLimit.Window != 90*time.Second || cfg.Verification.SendLimit.MaxSends != 5 {
		t.Fatalf("send limit = %+v", cfg.Verification.SendLimit)
	}
	if cfg.Callback.RedirectPath != "/signin" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
