// Package config loads and validates the concierge client configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			StreamURL:   "wss://chat.feastline.com/ws/customer",
			FallbackURL: "https://chat.feastline.com/api/chat",
			Channel:     "website",
			Role:        "customer",
		},
		Session: SessionConfig{
			MaxRetries:         3,
			RetryDelaySeconds:  3,
			FallbackTimeoutSec: 20,
			Sound:              true,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
