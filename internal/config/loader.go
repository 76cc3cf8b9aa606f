package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional). A path
	// that is missing or invalid fails the load.
	ConfigPath string

	// FlagOverrides are CLI flag values that override file values.
	FlagOverrides FlagOverrides

	// Logger receives warnings (e.g. undecoded keys). Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. Nil pointers mean unset.
type FlagOverrides struct {
	ListenAddr     *string
	ExternalOrigin *string
	StoreDriver    *string
	CacheDriver    *string
	TLSMode        *string
	LogLevel       *string
}

// fileConfig mirrors Config with pointer sections to detect presence.
type fileConfig struct {
	Server        *ServerConfig        `toml:"server"`
	TLS           *TLSConfig           `toml:"tls"`
	Store         *storeSection        `toml:"store"`
	Cache         *CacheConfig         `toml:"cache"`
	Auth          *AuthConfig          `toml:"auth"`
	Invitations   *InvitationsConfig   `toml:"invitations"`
	Notifications *NotificationsConfig `toml:"notifications"`
	Logging       *LoggingConfig       `toml:"logging"`
}

type storeSection struct {
	Driver  string         `toml:"driver"`
	Options map[string]any `toml:"options"`
}

// Load builds the configuration with the following precedence:
//  1. Defaults
//  2. TOML config file values
//  3. CLI flag overrides
//
// Enum fields are validated last, so an invalid value fails the load
// no matter where it came from. Unknown TOML keys warn but do not
// fail.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	if opts.ConfigPath != "" {
		var fc fileConfig
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
		overlayFile(cfg, &fc)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, fc *fileConfig) {
	if fc.Server != nil {
		if fc.Server.ListenAddr != "" {
			cfg.Server.ListenAddr = fc.Server.ListenAddr
		}
		if fc.Server.ExternalOrigin != "" {
			cfg.Server.ExternalOrigin = fc.Server.ExternalOrigin
		}
		if len(fc.Server.TrustedProxies) > 0 {
			cfg.Server.TrustedProxies = fc.Server.TrustedProxies
		}
	}

	if fc.TLS != nil {
		if fc.TLS.Mode != "" {
			cfg.TLS.Mode = fc.TLS.Mode
		}
		if fc.TLS.CertFile != "" {
			cfg.TLS.CertFile = fc.TLS.CertFile
		}
		if fc.TLS.KeyFile != "" {
			cfg.TLS.KeyFile = fc.TLS.KeyFile
		}
		if fc.TLS.SelfSignedDir != "" {
			cfg.TLS.SelfSignedDir = fc.TLS.SelfSignedDir
		}
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if len(fc.Store.Options) > 0 {
			cfg.Store.Options = fc.Store.Options
		}
	}

	if fc.Cache != nil {
		if fc.Cache.Driver != "" {
			cfg.Cache.Driver = fc.Cache.Driver
		}
		if fc.Cache.Valkey.Addr != "" {
			cfg.Cache.Valkey.Addr = fc.Cache.Valkey.Addr
		}
		if fc.Cache.Valkey.Password != "" {
			cfg.Cache.Valkey.Password = fc.Cache.Valkey.Password
		}
		if fc.Cache.Valkey.DB != 0 {
			cfg.Cache.Valkey.DB = fc.Cache.Valkey.DB
		}
	}

	if fc.Auth != nil {
		if fc.Auth.JWTSecret != "" {
			cfg.Auth.JWTSecret = fc.Auth.JWTSecret
		}
		if fc.Auth.JWTTTLMinutes != 0 {
			cfg.Auth.JWTTTLMinutes = fc.Auth.JWTTTLMinutes
		}
		if fc.Auth.SessionTTLHours != 0 {
			cfg.Auth.SessionTTLHours = fc.Auth.SessionTTLHours
		}
		if fc.Auth.BcryptCost != 0 {
			cfg.Auth.BcryptCost = fc.Auth.BcryptCost
		}
		if len(fc.Auth.SeedUsers) > 0 {
			cfg.Auth.SeedUsers = fc.Auth.SeedUsers
		}
	}

	if fc.Invitations != nil {
		if fc.Invitations.RateLimitPerMinute != 0 {
			cfg.Invitations.RateLimitPerMinute = fc.Invitations.RateLimitPerMinute
		}
	}

	if fc.Notifications != nil {
		if fc.Notifications.Sink != "" {
			cfg.Notifications.Sink = fc.Notifications.Sink
		}
		if fc.Notifications.WebhookURL != "" {
			cfg.Notifications.WebhookURL = fc.Notifications.WebhookURL
		}
		if fc.Notifications.TimeoutMS != 0 {
			cfg.Notifications.TimeoutMS = fc.Notifications.TimeoutMS
		}
	}

	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
		if fc.Logging.Format != "" {
			cfg.Logging.Format = fc.Logging.Format
		}
	}
}

func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.Server.ListenAddr = *f.ListenAddr
	}
	if f.ExternalOrigin != nil && *f.ExternalOrigin != "" {
		cfg.Server.ExternalOrigin = *f.ExternalOrigin
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.CacheDriver != nil && *f.CacheDriver != "" {
		cfg.Cache.Driver = *f.CacheDriver
	}
	if f.TLSMode != nil && *f.TLSMode != "" {
		cfg.TLS.Mode = *f.TLSMode
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.Logging.Level = *f.LogLevel
	}
}

func validate(cfg *Config) error {
	switch cfg.TLS.Mode {
	case "off", "static", "selfsigned":
	default:
		return fmt.Errorf("invalid tls.mode %q: must be one of off, static, selfsigned", cfg.TLS.Mode)
	}
	if cfg.TLS.Mode == "static" && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		return fmt.Errorf("tls.mode static requires cert_file and key_file")
	}

	switch cfg.Cache.Driver {
	case "memory", "valkey":
	default:
		return fmt.Errorf("invalid cache.driver %q: must be one of memory, valkey", cfg.Cache.Driver)
	}

	switch cfg.Notifications.Sink {
	case "log", "webhook":
	default:
		return fmt.Errorf("invalid notifications.sink %q: must be one of log, webhook", cfg.Notifications.Sink)
	}
	if cfg.Notifications.Sink == "webhook" && cfg.Notifications.WebhookURL == "" {
		return fmt.Errorf("notifications.sink webhook requires webhook_url")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format %q: must be json or text", cfg.Logging.Format)
	}

	return nil
}
