// Package main is the entrypoint for the draftdeck collaboration server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/cache"
	cachemem "github.com/draftdeck/draftdeck/internal/cache/memory"
	"github.com/draftdeck/draftdeck/internal/cache/valkey"
	"github.com/draftdeck/draftdeck/internal/config"
	"github.com/draftdeck/draftdeck/internal/directory"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/invites"
	"github.com/draftdeck/draftdeck/internal/notify"
	"github.com/draftdeck/draftdeck/internal/ratelimit"
	"github.com/draftdeck/draftdeck/internal/server"
	"github.com/draftdeck/draftdeck/internal/store"

	// Register store drivers
	_ "github.com/draftdeck/draftdeck/internal/store/memory"
	_ "github.com/draftdeck/draftdeck/internal/store/postgres"
	_ "github.com/draftdeck/draftdeck/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	externalOrigin := flag.String("external-origin", "", "External origin (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory, sqlite, or postgres (overrides config)")
	cacheDriver := flag.String("cache-driver", "", "Cache driver: memory or valkey (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, or selfsigned (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:     listenAddr,
			ExternalOrigin: externalOrigin,
			StoreDriver:    storeDriver,
			CacheDriver:    cacheDriver,
			TLSMode:        tlsMode,
			LogLevel:       loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	driver, err := store.New(&cfg.Store)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if err := driver.Init(ctx); err != nil {
		logger.Error("failed to initialize store", "driver", driver.Name(), "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store ready", "driver", driver.Name())

	// Cache backend for sessions and rate limiting
	cacheBackend, err := newCache(cfg.Cache)
	if err != nil {
		logger.Error("failed to create cache", "driver", cfg.Cache.Driver, "error", err)
		os.Exit(1)
	}
	defer cacheBackend.Close()

	var limiter *ratelimit.Limiter
	if cfg.Invitations.RateLimitPerMinute > 0 {
		limiter = ratelimit.New(cacheBackend, &ratelimit.Config{
			RequestsPerWindow: cfg.Invitations.RateLimitPerMinute,
			Window:            time.Minute,
			KeyPrefix:         "invite:",
		})
	}

	// Identity
	userAuth := identity.NewUserAuth(cfg.Auth.BcryptCost)
	sessionRepo := identity.NewCacheSessionRepo(cacheBackend)
	tokens := identity.NewTokenIssuer(cfg.Auth.JWTSecret, "draftdeck", time.Duration(cfg.Auth.JWTTTLMinutes)*time.Minute)

	seeded := make([]identity.SeededUser, len(cfg.Auth.SeedUsers))
	for i, u := range cfg.Auth.SeedUsers {
		seeded[i] = identity.SeededUser{
			Email:       u.Email,
			Password:    u.Password,
			DisplayName: u.DisplayName,
		}
	}
	bootstrap := identity.NewBootstrap(driver, userAuth, logger)
	if created, err := bootstrap.Run(ctx, seeded); err != nil {
		logger.Error("failed to seed users", "error", err)
		os.Exit(1)
	} else if created > 0 {
		logger.Info("seeded users", "count", created)
	}

	// Notifications
	notifier := notify.NewNotifier(newSink(cfg.Notifications, logger), logger)

	// Collaboration services
	resolver := access.NewResolver(driver)
	directorySvc := directory.NewService(driver, resolver, notifier)
	invitesSvc := invites.NewService(driver, resolver, notifier)

	srv, err := server.New(cfg, logger, &server.Deps{
		Store:         driver,
		SessionRepo:   sessionRepo,
		UserAuth:      userAuth,
		Tokens:        tokens,
		Resolver:      resolver,
		Directory:     directorySvc,
		Invitations:   invitesSvc,
		InviteLimiter: limiter,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newLogger builds the slog logger from the logging section.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newCache selects the cache backend from config.
func newCache(cfg config.CacheConfig) (cache.CacheWithCounter, error) {
	if cfg.Driver == "valkey" {
		return valkey.New(&valkey.Config{
			Addr:     cfg.Valkey.Addr,
			Password: cfg.Valkey.Password,
			DB:       cfg.Valkey.DB,
		})
	}
	return cachemem.New(5*time.Minute, time.Minute), nil
}

// newSink selects the notification sink from config.
func newSink(cfg config.NotificationsConfig, logger *slog.Logger) notify.Sink {
	if cfg.Sink == "webhook" {
		return notify.NewWebhookSink(cfg.WebhookURL, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	}
	return notify.NewLogSink(logger)
}
