package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draftdeck.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8700" {
		t.Errorf("expected :8700, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.TLS.Mode != "off" {
		t.Errorf("expected tls off, got %s", cfg.TLS.Mode)
	}
	if cfg.Notifications.Sink != "log" {
		t.Errorf("expected log sink, got %s", cfg.Notifications.Sink)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := writeConfig(t, `
[server]
listen_addr = ":9000"
external_origin = "https://deck.example.com"

[store]
driver = "sqlite"
[store.options]
path = "/var/lib/draftdeck/deck.db"

[cache]
driver = "valkey"
[cache.valkey]
addr = "valkey.internal:6379"

[auth]
jwt_secret = "sekrit"
session_ttl_hours = 8

[[auth.seed_users]]
email = "owner@example.com"
password = "changeme"
display_name = "Owner"

[invitations]
rate_limit_per_minute = 10

[notifications]
sink = "webhook"
webhook_url = "https://hooks.example.com/deck"

[logging]
level = "debug"
format = "text"
`)

	cfg, err := Load(LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %s", cfg.Server.ListenAddr)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("store driver = %s", cfg.Store.Driver)
	}
	if got := cfg.Store.Options["path"]; got != "/var/lib/draftdeck/deck.db" {
		t.Errorf("store path option = %v", got)
	}
	if cfg.Cache.Driver != "valkey" || cfg.Cache.Valkey.Addr != "valkey.internal:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if len(cfg.Auth.SeedUsers) != 1 || cfg.Auth.SeedUsers[0].Email != "owner@example.com" {
		t.Errorf("seed users = %+v", cfg.Auth.SeedUsers)
	}
	if cfg.Auth.SessionTTLHours != 8 {
		t.Errorf("session ttl = %d", cfg.Auth.SessionTTLHours)
	}
	if cfg.Invitations.RateLimitPerMinute != 10 {
		t.Errorf("rate limit = %d", cfg.Invitations.RateLimitPerMinute)
	}
	if cfg.Notifications.Sink != "webhook" {
		t.Errorf("sink = %s", cfg.Notifications.Sink)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	// Untouched sections keep defaults.
	if cfg.TLS.Mode != "off" {
		t.Errorf("tls mode = %s", cfg.TLS.Mode)
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
listen_addr = ":9000"
`)

	listen := ":9100"
	driver := "postgres"
	cfg, err := Load(LoaderOptions{
		ConfigPath: path,
		FlagOverrides: FlagOverrides{
			ListenAddr:  &listen,
			StoreDriver: &driver,
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Flags beat the file.
	if cfg.Server.ListenAddr != ":9100" {
		t.Errorf("listen_addr = %s", cfg.Server.ListenAddr)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("store driver = %s", cfg.Store.Driver)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(LoaderOptions{ConfigPath: "/nonexistent/draftdeck.toml"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, "this is not toml [[[")
	if _, err := Load(LoaderOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadEnumValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "bad tls mode",
			content: "[tls]\nmode = \"acme\"\n",
			wantSub: "tls.mode",
		},
		{
			name:    "static tls without certs",
			content: "[tls]\nmode = \"static\"\n",
			wantSub: "cert_file",
		},
		{
			name:    "bad cache driver",
			content: "[cache]\ndriver = \"memcached\"\n",
			wantSub: "cache.driver",
		},
		{
			name:    "bad sink",
			content: "[notifications]\nsink = \"smtp\"\n",
			wantSub: "notifications.sink",
		},
		{
			name:    "webhook without url",
			content: "[notifications]\nsink = \"webhook\"\n",
			wantSub: "webhook_url",
		},
		{
			name:    "bad log level",
			content: "[logging]\nlevel = \"trace\"\n",
			wantSub: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(LoaderOptions{ConfigPath: path})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}
