package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/draftdeck/draftdeck/internal/api"
	"github.com/draftdeck/draftdeck/internal/appctx"
	"github.com/draftdeck/draftdeck/internal/identity"
)

// RequestLoggerMiddleware attaches a request-scoped logger to the
// context with request_id, method, path and client_ip already bound.
// Handlers retrieve it via appctx.GetLogger and never re-add those keys.
func RequestLoggerMiddleware(logger *slog.Logger, tp *TrustedProxies) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := "unknown"
			if tp != nil {
				clientIP = tp.GetClientIPString(r)
			}

			reqLogger := logger.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)

			ctx := appctx.WithLogger(r.Context(), reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware writes the access log line when the response is
// done. The context logger already carries the base request fields, so
// only response fields are added here.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logger, ok := appctx.LoggerFromContext(r.Context())
			if !ok {
				logger = s.logger.With(
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
				)
			}

			logger.Info("request",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware enforces authentication for protected paths. A session
// token from the cookie or a bearer JWT both work; public endpoints
// (health, login, invitation resolve) bypass the check.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthRequired(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractSessionToken(r)
		if token == "" {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
			return
		}

		userID, reason, ok := s.resolveToken(r, token)
		if !ok {
			api.WriteUnauthorized(w, reason, "invalid or expired credentials")
			return
		}

		user, err := s.deps.Store.GetUser(r.Context(), userID)
		if err != nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "account not found")
			return
		}

		ctx := identity.WithUser(r.Context(), user)

		// Handler log lines should carry the acting user
		if logger, ok := appctx.LoggerFromContext(ctx); ok {
			ctx = appctx.WithLogger(ctx, logger.With("user_id", user.ID))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveToken maps a token to a user id, trying the session store
// first and falling back to JWT verification for API clients.
func (s *Server) resolveToken(r *http.Request, token string) (userID, failReason string, ok bool) {
	session, err := s.deps.SessionRepo.Get(r.Context(), token)
	if err == nil {
		if session.IsExpired() {
			return "", api.ReasonSessionExpired, false
		}
		return session.UserID, "", true
	}

	userID, err = s.deps.Tokens.Verify(token)
	if err != nil {
		return "", api.ReasonUnauthenticated, false
	}
	return userID, "", true
}

// extractSessionToken gets the session token from cookie or Authorization header.
func extractSessionToken(r *http.Request) string {
	cookie, err := r.Cookie("session")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

// rateLimitMiddleware throttles the invitation endpoints that accept
// unauthenticated or cheap-to-forge input: creation and token resolve.
// A nil limiter or backend failure lets the request through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.InviteLimiter == nil || !isRateLimitedPath(r) {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.trustedProxies.GetClientIPString(r)
		result, err := s.deps.InviteLimiter.Allow(r.Context(), clientIP)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			s.logger.Warn("rate limit exceeded",
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(result.ResetAt).Seconds())+1))
			api.WriteTooManyRequests(w, "too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isRateLimitedPath reports whether a request counts against the
// invitation limiter.
func isRateLimitedPath(r *http.Request) bool {
	if r.Method == http.MethodPost && r.URL.Path == "/api/invitations" {
		return true
	}
	return pathMatchesPrefix(r.URL.Path, "/api/invitations/resolve")
}
