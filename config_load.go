package goAuthClient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by [LoadConfigEnv].
const EnvPrefix = "AUTHFLOW_"

// LoadConfigFile reads a YAML file over [DefaultConfig]. Keys absent from the
// file keep their defaults. Durations are written as Go duration strings
// ("15s", "10m").
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigEnv overlays AUTHFLOW_* environment variables on base. Files in
// dotenv are loaded first without overriding variables already set; missing
// files are ignored.
func LoadConfigEnv(base Config, dotenv ...string) (Config, error) {
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return base, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := base
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return base, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadConfig resolves the configuration the CLI runs with: defaults, then the
// YAML file at path (when non-empty), then .env and the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return cfg, err
		}
	}
	cfg, err := LoadConfigEnv(cfg, ".env")
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
