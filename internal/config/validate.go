package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Backend.StreamURL != "" &&
		!strings.HasPrefix(cfg.Backend.StreamURL, "ws://") &&
		!strings.HasPrefix(cfg.Backend.StreamURL, "wss://") {
		issues = append(issues, ValidationIssue{
			Path:    "backend.streamUrl",
			Message: fmt.Sprintf("must start with ws:// or wss://, got %q", cfg.Backend.StreamURL),
		})
	}

	if cfg.Backend.FallbackURL != "" &&
		!strings.HasPrefix(cfg.Backend.FallbackURL, "http://") &&
		!strings.HasPrefix(cfg.Backend.FallbackURL, "https://") {
		issues = append(issues, ValidationIssue{
			Path:    "backend.fallbackUrl",
			Message: fmt.Sprintf("must start with http:// or https://, got %q", cfg.Backend.FallbackURL),
		})
	}

	if cfg.Session.MaxRetries < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.maxRetries",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Session.MaxRetries),
		})
	}

	if cfg.Session.RetryDelaySeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.retryDelaySeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Session.RetryDelaySeconds),
		})
	}

	validDrivers := []string{"sqlite", "memory"}
	if cfg.Storage.Driver != "" && !slices.Contains(validDrivers, cfg.Storage.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "storage.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Storage.Driver),
		})
	}

	validLogLevels := []string{"silent", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
