// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/api"
	"github.com/draftdeck/draftdeck/internal/config"
	"github.com/draftdeck/draftdeck/internal/directory"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/invites"
	"github.com/draftdeck/draftdeck/internal/ratelimit"
	"github.com/draftdeck/draftdeck/internal/store"
)

var ErrMissingDep = errors.New("missing required dependency")

// Deps holds all server dependencies.
type Deps struct {
	// Required: persistence and identity
	Store       store.Driver
	SessionRepo identity.SessionRepo
	UserAuth    *identity.UserAuth
	Tokens      *identity.TokenIssuer

	// Required: collaboration services
	Resolver    *access.Resolver
	Directory   *directory.Service
	Invitations *invites.Service

	// Optional: limiter for invitation endpoints (nil disables throttling)
	InviteLimiter *ratelimit.Limiter
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg            *config.Config
	httpServer     *http.Server
	logger         *slog.Logger
	deps           *Deps
	trustedProxies *TrustedProxies

	authHandler      *api.AuthHandler
	invitesHandler   *invites.Handler
	directoryHandler *directory.Handler
	accessHandler    *access.Handler
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:              cfg,
		logger:           logger,
		deps:             deps,
		trustedProxies:   NewTrustedProxies(cfg.Server.TrustedProxies),
		authHandler:      api.NewAuthHandler(deps.Store, deps.SessionRepo, deps.UserAuth, deps.Tokens),
		invitesHandler:   invites.NewHandler(deps.Invitations, logger),
		directoryHandler: directory.NewHandler(deps.Directory, logger),
		accessHandler:    access.NewHandler(deps.Resolver, logger),
	}

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.Server.ListenAddr,
		"external_origin", s.cfg.Server.ExternalOrigin,
		"tls_mode", s.cfg.TLS.Mode,
	)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()

	case "static", "selfsigned":
		tlsManager := NewTLSManager(&s.cfg.TLS, s.logger)
		hostname := extractHostname(s.cfg.Server.ExternalOrigin)
		tlsConfig, err := tlsManager.GetTLSConfig(hostname)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		if tlsConfig == nil {
			return fmt.Errorf("TLS config is nil for mode %s", s.cfg.TLS.Mode)
		}

		s.httpServer.TLSConfig = tlsConfig
		s.logger.Info("starting server with TLS", "mode", s.cfg.TLS.Mode)

		// Certs are in TLSConfig.Certificates; ListenAndServeTLS with
		// empty strings uses those.
		return s.httpServer.ListenAndServeTLS("", "")

	default:
		return fmt.Errorf("%w: %s", ErrInvalidTLSMode, s.cfg.TLS.Mode)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// extractHostname extracts just the hostname from an external origin URL.
// For TLS certificate generation, we need the hostname without port.
func extractHostname(externalOrigin string) string {
	host := externalOrigin
	if idx := len("https://"); len(host) > idx && host[:idx] == "https://" {
		host = host[idx:]
	} else if idx := len("http://"); len(host) > idx && host[:idx] == "http://" {
		host = host[idx:]
	}
	if len(host) > 0 && host[len(host)-1] == '/' {
		host = host[:len(host)-1]
	}
	// Remove port if present
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
		if host[i] == ']' {
			// IPv6 address like [::1]:8080
			break
		}
	}
	return host
}

// validateDeps checks that all required dependencies are provided.
func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}
	if deps.Store == nil {
		return fmt.Errorf("%w: Store", ErrMissingDep)
	}
	if deps.SessionRepo == nil {
		return fmt.Errorf("%w: SessionRepo", ErrMissingDep)
	}
	if deps.UserAuth == nil {
		return fmt.Errorf("%w: UserAuth", ErrMissingDep)
	}
	if deps.Tokens == nil {
		return fmt.Errorf("%w: Tokens", ErrMissingDep)
	}
	if deps.Resolver == nil {
		return fmt.Errorf("%w: Resolver", ErrMissingDep)
	}
	if deps.Directory == nil {
		return fmt.Errorf("%w: Directory", ErrMissingDep)
	}
	if deps.Invitations == nil {
		return fmt.Errorf("%w: Invitations", ErrMissingDep)
	}
	return nil
}
