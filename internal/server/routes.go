package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/draftdeck/draftdeck/internal/api"
)

// RouteGroup defines an endpoint group with its auth requirements.
type RouteGroup struct {
	Name         string
	PathPrefix   string
	RequiresAuth bool
}

// routeGroups defines all endpoint groups and their auth requirements.
// This table is the single source of truth for routing decisions.
var routeGroups = []RouteGroup{
	{Name: "api", PathPrefix: "/api", RequiresAuth: true},
}

// GetRouteGroups returns the route group definitions for testing.
func GetRouteGroups() []RouteGroup {
	return routeGroups
}

// publicExceptions are specific paths that don't require auth within
// otherwise protected groups. The invitation resolve endpoint is public
// because the token itself is the credential.
var publicExceptions = []string{
	"/api/healthz",
	"/api/auth/login",
	"/api/auth/token",
	"/api/invitations/resolve",
}

// IsAuthRequired checks if a given path requires authentication.
// This is used by the auth middleware to make gating decisions.
func IsAuthRequired(path string) bool {
	for _, exc := range publicExceptions {
		if pathMatchesPrefix(path, exc) {
			return false
		}
	}

	for _, rg := range routeGroups {
		if pathMatchesPrefix(path, rg.PathPrefix) {
			return rg.RequiresAuth
		}
	}

	// Default: require auth for unknown paths
	return true
}

// pathMatchesPrefix checks if path equals or is a subpath of prefix.
func pathMatchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		if path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// setupRoutes creates the chi router with all route groups mounted.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Global middleware stack (order matters for correct logging)
	// RequestID must come first so GetReqID works in RequestLoggerMiddleware.
	// loggingMiddleware wraps response, Recoverer writes through wrapper,
	// so access log captures correct status for panics.
	r.Use(middleware.RequestID)
	r.Use(RequestLoggerMiddleware(s.logger, s.trustedProxies))
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Rate limiting for the invitation endpoints an attacker can probe
	r.Use(s.rateLimitMiddleware)

	// Auth middleware for all routes (checks IsAuthRequired)
	r.Use(s.authMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Health endpoint (public)
		r.Get("/healthz", api.HealthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.authHandler.Login)
			r.Post("/logout", s.authHandler.Logout)
			r.Post("/token", s.authHandler.IssueToken)
			r.Get("/me", s.authHandler.GetCurrentUser)
		})

		r.Route("/invitations", func(r chi.Router) {
			s.invitesHandler.Routes(r)
		})

		r.Route("/documents", func(r chi.Router) {
			s.directoryHandler.DocumentRoutes(r)
		})

		r.Route("/teams", func(r chi.Router) {
			s.directoryHandler.TeamRoutes(r)
		})

		r.Route("/access", func(r chi.Router) {
			s.accessHandler.Routes(r)
		})
	})

	return r
}
