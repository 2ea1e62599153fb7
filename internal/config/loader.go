package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Backend.StreamURL == "" {
		cfg.Backend.StreamURL = d.Backend.StreamURL
	}
	if cfg.Backend.FallbackURL == "" {
		cfg.Backend.FallbackURL = d.Backend.FallbackURL
	}
	if cfg.Backend.Channel == "" {
		cfg.Backend.Channel = d.Backend.Channel
	}
	if cfg.Backend.Role == "" {
		cfg.Backend.Role = d.Backend.Role
	}
	if cfg.Session.MaxRetries == 0 {
		cfg.Session.MaxRetries = d.Session.MaxRetries
	}
	if cfg.Session.RetryDelaySeconds == 0 {
		cfg.Session.RetryDelaySeconds = d.Session.RetryDelaySeconds
	}
	if cfg.Session.FallbackTimeoutSec == 0 {
		cfg.Session.FallbackTimeoutSec = d.Session.FallbackTimeoutSec
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = d.Storage.Driver
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// applyEnvOverrides reads CONCIERGE_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONCIERGE_STREAM_URL"); v != "" {
		cfg.Backend.StreamURL = v
	}
	if v := os.Getenv("CONCIERGE_FALLBACK_URL"); v != "" {
		cfg.Backend.FallbackURL = v
	}
	if v := os.Getenv("CONCIERGE_PAGE"); v != "" {
		cfg.Backend.Page = v
	}
	if v := os.Getenv("CONCIERGE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxRetries = n
		}
	}
	if v := os.Getenv("CONCIERGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CONCIERGE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
}
