package goAuthClient

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the complete client configuration.
//
// Config values are copied by [Builder.WithConfig]; later changes to the
// caller's value do not affect a built Engine.
type Config struct {
	Provider     ProviderConfig     `yaml:"provider" envPrefix:"PROVIDER_"`
	Verification VerificationConfig `yaml:"verification" envPrefix:"VERIFICATION_"`
	Session      SessionConfig      `yaml:"session" envPrefix:"SESSION_"`
	Profile      ProfileConfig      `yaml:"profile" envPrefix:"PROFILE_"`
	Callback     CallbackConfig     `yaml:"callback" envPrefix:"CALLBACK_"`
	Audit        AuditConfig        `yaml:"audit" envPrefix:"AUDIT_"`
	Metrics      MetricsConfig      `yaml:"metrics" envPrefix:"METRICS_"`
	Log          LogConfig          `yaml:"log" envPrefix:"LOG_"`
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig points at the hosted identity provider.
type ProviderConfig struct {
	URL          string        `yaml:"url" env:"URL"`
	AnonKey      string        `yaml:"anon_key" env:"ANON_KEY"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	AutoRefresh  bool          `yaml:"auto_refresh" env:"AUTO_REFRESH"`
	ExpiryMargin time.Duration `yaml:"expiry_margin" env:"EXPIRY_MARGIN"`
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig points at the code service. An empty BaseURL means the
// service is hosted next to the identity provider.
type VerificationConfig struct {
	BaseURL    string              `yaml:"base_url" env:"BASE_URL"`
	SendPath   string              `yaml:"send_path" env:"SEND_PATH"`
	VerifyPath string              `yaml:"verify_path" env:"VERIFY_PATH"`
	Timeout    time.Duration       `yaml:"timeout" env:"TIMEOUT"`
	SendLimit  CodeSendLimitConfig `yaml:"send_limit" envPrefix:"SEND_LIMIT_"`
}

// CodeSendLimitConfig throttles code sends per phone. It needs redis.
type CodeSendLimitConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	MaxSends int           `yaml:"max_sends" env:"MAX_SENDS"`
	Window   time.Duration `yaml:"window" env:"WINDOW"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig selects where the current session is persisted.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend       string        `yaml:"backend" env:"BACKEND"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string        `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	StorageKey    string        `yaml:"storage_key" env:"STORAGE_KEY"`
	MaxAge        time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

/*
====================================
PROFILE CONFIG
====================================
*/

// ProfileConfig selects the profile store.
type ProfileConfig struct {
	// Driver is "memory", "postgres" or "sqlite".
	Driver      string `yaml:"driver" env:"DRIVER"`
	DSN         string `yaml:"dsn" env:"DSN"`
	Table       string `yaml:"table" env:"TABLE"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

/*
====================================
CALLBACK CONFIG
====================================
*/

// CallbackConfig controls sign-up confirmation links and the callback page.
type CallbackConfig struct {
	// EmailRedirectTo is the landing URL placed in confirmation emails.
	EmailRedirectTo string        `yaml:"email_redirect_to" env:"EMAIL_REDIRECT_TO"`
	RedirectPath    string        `yaml:"redirect_path" env:"REDIRECT_PATH"`
	RedirectDelay   time.Duration `yaml:"redirect_delay" env:"REDIRECT_DELAY"`
	ListenAddr      string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"DROP_IF_FULL"`
	// LogEvents also writes every audit event to the logger.
	LogEvents bool `yaml:"log_events" env:"LOG_EVENTS"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode             string `yaml:"mode" env:"MODE"`
	Level            string `yaml:"level" env:"LEVEL"`
	DisableRedaction bool   `yaml:"disable_redaction" env:"DISABLE_REDACTION"`
	HashSalt         string `yaml:"hash_salt" env:"HASH_SALT"`
}

// DefaultConfig returns the baseline configuration. Provider URL and anon key
// have no defaults.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Timeout:      15 * time.Second,
			AutoRefresh:  true,
			ExpiryMargin: 10 * time.Second,
		},
		Verification: VerificationConfig{
			SendPath:   "/functions/v1/send-verification-code",
			VerifyPath: "/functions/v1/verify-code",
			Timeout:    15 * time.Second,
			SendLimit: CodeSendLimitConfig{
				MaxSends: 5,
				Window:   10 * time.Minute,
			},
		},
		Session: SessionConfig{
			Backend:     "memory",
			RedisPrefix: "authflow",
			StorageKey:  "session",
			MaxAge:      30 * 24 * time.Hour,
		},
		Profile: ProfileConfig{
			Driver: "memory",
			Table:  "profiles",
		},
		Callback: CallbackConfig{
			EmailRedirectTo: "http://localhost:8080/verify-email",
			RedirectPath:    "/login",
			RedirectDelay:   2 * time.Second,
			ListenAddr:      ":8080",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},
	}
}

// Validate checks cfg for values the engine cannot run with.
func (c *Config) Validate() error {
	// Provider
	if strings.TrimSpace(c.Provider.URL) == "" {
		return errors.New("Provider URL is required")
	}
	if u, err := url.Parse(c.Provider.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Provider URL must be an absolute URL")
	}
	if strings.TrimSpace(c.Provider.AnonKey) == "" {
		return errors.New("Provider AnonKey is required")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("Provider Timeout must be > 0")
	}
	if c.Provider.ExpiryMargin < 0 {
		return errors.New("Provider ExpiryMargin must be >= 0")
	}

	// Verification
	if c.Verification.BaseURL != "" {
		if u, err := url.Parse(c.Verification.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Verification BaseURL must be an absolute URL")
		}
	}
	if c.Verification.Timeout <= 0 {
		return errors.New("Verification Timeout must be > 0")
	}
	if c.Verification.SendLimit.Enabled {
		if c.Verification.SendLimit.MaxSends <= 0 {
			return errors.New("Verification SendLimit MaxSends must be > 0")
		}
		if c.Verification.SendLimit.Window <= 0 {
			return errors.New("Verification SendLimit Window must be > 0")
		}
	}

	// Session
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Session.StorageKey) == "" {
			return errors.New("Session StorageKey is required for redis backend")
		}
		if c.Session.MaxAge < 0 {
			return errors.New("Session MaxAge must be >= 0")
		}
	default:
		return errors.New("Session Backend must be 'memory' or 'redis'")
	}

	// Profile
	switch c.Profile.Driver {
	case "memory":
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Profile.DSN) == "" {
			return errors.New("Profile DSN is required for " + c.Profile.Driver)
		}
	default:
		return errors.New("Profile Driver must be 'memory', 'postgres' or 'sqlite'")
	}

	// Callback
	if c.Callback.RedirectDelay < 0 {
		return errors.New("Callback RedirectDelay must be >= 0")
	}
	if !strings.HasPrefix(c.Callback.RedirectPath, "/") {
		return errors.New("Callback RedirectPath must start with '/'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		return errors.New("Log Mode must be 'dev' or 'prod'")
	}

	return nil
}

// verificationBaseURL is the code service base URL after defaulting.
func (c *Config) verificationBaseURL() string {
	if c.Verification.BaseURL != "" {
		return c.Verification.BaseURL
	}
	return c.Provider.URL
}
