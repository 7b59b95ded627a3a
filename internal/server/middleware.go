package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shoplist/shoplist-go/internal/appctx"
	"github.com/shoplist/shoplist-go/internal/server/api"
)

// loggingMiddleware logs request information using slog and attaches the
// logger to the request context.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLogger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(appctx.WithLogger(r.Context(), reqLogger))

		defer func() {
			reqLogger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", s.trustedProxies.GetClientIPString(r),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware enforces session authentication.
// Public endpoints (health, login, register) bypass auth.
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

		session, err := s.deps.SessionRepo.Get(r.Context(), token)
		if err != nil {
			api.WriteUnauthorized(w, api.ReasonSessionExpired, "session not found or expired")
			return
		}
		if session.IsExpired() {
			api.WriteUnauthorized(w, api.ReasonSessionExpired, "session has expired")
			return
		}

		user, err := s.deps.PartyRepo.Get(r.Context(), session.UserID)
		if err != nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "session user not found")
			return
		}

		ctx := api.WithSession(r.Context(), session, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
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
