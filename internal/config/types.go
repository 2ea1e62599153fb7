package config

// Config is the root configuration for the concierge chat client.
type Config struct {
	Backend BackendConfig `yaml:"backend,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// BackendConfig locates the conversational backend.
type BackendConfig struct {
	StreamURL   string `yaml:"streamUrl,omitempty"`   // websocket endpoint, ws:// or wss://
	FallbackURL string `yaml:"fallbackUrl,omitempty"` // request/response endpoint, http:// or https://
	Channel     string `yaml:"channel,omitempty"`     // origin tag sent with every message
	Role        string `yaml:"role,omitempty"`        // connection role, e.g. "customer"
	Page        string `yaml:"page,omitempty"`        // page/topic context key
}

// SessionConfig tunes the conversation session behavior.
type SessionConfig struct {
	MaxRetries         int  `yaml:"maxRetries,omitempty"`             // reconnect attempts before offline mode
	RetryDelaySeconds  int  `yaml:"retryDelaySeconds,omitempty"`      // fixed delay between reconnect attempts
	FallbackTimeoutSec int  `yaml:"fallbackTimeoutSeconds,omitempty"` // per-request timeout on the fallback channel
	Sound              bool `yaml:"sound"`                            // notification sound on assistant messages
}

// StorageConfig controls identity/transcript persistence.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`   // sqlite file path; empty uses the default profile path
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}
