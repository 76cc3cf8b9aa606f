// Package config provides configuration loading and validation.
package config

import (
	"github.com/draftdeck/draftdeck/internal/store"
)

// Config holds the full server configuration.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	TLS           TLSConfig           `toml:"tls"`
	Store         store.DriverConfig  `toml:"store"`
	Cache         CacheConfig         `toml:"cache"`
	Auth          AuthConfig          `toml:"auth"`
	Invitations   InvitationsConfig   `toml:"invitations"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	// ListenAddr is the address to listen on, e.g. ":8700".
	ListenAddr string `toml:"listen_addr"`

	// ExternalOrigin is the public origin used in invitation links,
	// e.g. "https://draftdeck.example.com".
	ExternalOrigin string `toml:"external_origin"`

	// TrustedProxies are CIDRs whose X-Forwarded-For headers are
	// believed for client IP extraction.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// TLSConfig holds TLS settings. Mode is one of off, static, selfsigned.
type TLSConfig struct {
	Mode          string `toml:"mode"`
	CertFile      string `toml:"cert_file"`
	KeyFile       string `toml:"key_file"`
	SelfSignedDir string `toml:"self_signed_dir"`
}

// CacheConfig selects the cache backend. Driver is memory or valkey.
type CacheConfig struct {
	Driver string       `toml:"driver"`
	Valkey ValkeyConfig `toml:"valkey"`
}

// ValkeyConfig holds Valkey/Redis connection settings.
type ValkeyConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	// JWTSecret signs bearer tokens. Required outside tests.
	JWTSecret string `toml:"jwt_secret"`

	// JWTTTLMinutes bounds bearer token lifetime.
	JWTTTLMinutes int `toml:"jwt_ttl_minutes"`

	// SessionTTLHours bounds cookie session lifetime.
	SessionTTLHours int `toml:"session_ttl_hours"`

	// BcryptCost for password hashing; 0 uses the library default.
	BcryptCost int `toml:"bcrypt_cost"`

	// SeedUsers are created at startup if missing.
	SeedUsers []SeedUser `toml:"seed_users"`
}

// SeedUser is a bootstrap account.
type SeedUser struct {
	Email       string `toml:"email"`
	Password    string `toml:"password"`
	DisplayName string `toml:"display_name"`
}

// InvitationsConfig tunes the invitation lifecycle.
type InvitationsConfig struct {
	// RateLimitPerMinute caps invitation creation and link resolution
	// per client IP. 0 disables the limiter.
	RateLimitPerMinute int64 `toml:"rate_limit_per_minute"`
}

// NotificationsConfig selects the notification sink. Sink is one of
// log, webhook.
type NotificationsConfig struct {
	Sink       string `toml:"sink"`
	WebhookURL string `toml:"webhook_url"`
	TimeoutMS  int    `toml:"timeout_ms"`
}

// LoggingConfig controls the slog handler. Level is one of debug,
// info, warn, error; Format is json or text.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns development-friendly defaults: memory stores, no
// TLS, log sink.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8700",
			ExternalOrigin: "http://localhost:8700",
			TrustedProxies: []string{"127.0.0.0/8", "::1/128"},
		},
		TLS: TLSConfig{
			Mode:          "off",
			SelfSignedDir: ".draftdeck/certs",
		},
		Store: store.DriverConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Driver: "memory",
			Valkey: ValkeyConfig{
				Addr: "localhost:6379",
			},
		},
		Auth: AuthConfig{
			JWTTTLMinutes:   60,
			SessionTTLHours: 24,
		},
		Invitations: InvitationsConfig{
			RateLimitPerMinute: 60,
		},
		Notifications: NotificationsConfig{
			Sink:      "log",
			TimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
