package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shoplist/shoplist-go/internal/ratelimit"
	"github.com/shoplist/shoplist-go/internal/server/api"
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
	{Name: "acme", PathPrefix: "/.well-known/acme-challenge", RequiresAuth: false},
	{Name: "api", PathPrefix: "/api", RequiresAuth: true},
}

// publicExceptions are paths under an auth-required group that stay public.
var publicExceptions = []string{
	"/api/healthz",
	"/api/auth/login",
	"/api/auth/register",
}

// GetRouteGroups returns the route group definitions for testing.
func GetRouteGroups() []RouteGroup {
	return routeGroups
}

// IsAuthRequired checks if a given path requires authentication.
// This is used by the auth middleware to make gating decisions.
func IsAuthRequired(path string) bool {
	for _, exception := range publicExceptions {
		if pathMatchesPrefix(path, exception) {
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

// setupRoutes creates the chi router with all endpoints mounted.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Global middleware stack (order matters for correct logging).
	// RequestID must come first so the request logger can pick it up.
	// loggingMiddleware wraps the response, Recoverer writes through the
	// wrapper, so the access log captures correct status for panics.
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)

	r.Get("/api/healthz", api.HealthHandler)

	r.Route("/api/auth", func(r chi.Router) {
		if s.loginLimiter != nil {
			r.With(s.loginLimiter.Middleware).Post("/login", s.authHandler.Login)
		} else {
			r.Post("/login", s.authHandler.Login)
		}
		r.Post("/register", s.authHandler.Register)
		r.Post("/logout", s.authHandler.Logout)
		r.Get("/me", s.authHandler.Me)
	})

	r.Route("/api/lists", func(r chi.Router) {
		r.Get("/", s.listsHandler.List)
		r.Post("/", s.listsHandler.Create)

		r.Route("/{listID}", func(r chi.Router) {
			r.Get("/", s.listsHandler.Get)
			r.Patch("/", s.listsHandler.Update)
			r.Delete("/", s.listsHandler.Delete)
			r.Post("/leave", s.listsHandler.Leave)

			r.Post("/items", s.listsHandler.CreateItem)
			r.Patch("/items/{itemID}", s.listsHandler.UpdateItem)
			r.Delete("/items/{itemID}", s.listsHandler.DeleteItem)

			r.Post("/shares", s.listsHandler.CreateShare)
			r.Delete("/shares/{userID}", s.listsHandler.DeleteShare)
		})
	})

	return r
}

// newLoginLimiter builds the login rate limiter, or nil when disabled.
func (s *Server) newLoginLimiter(requestsPerMinute int) *ratelimit.Limiter {
	if requestsPerMinute <= 0 || s.deps.Cache == nil {
		return nil
	}
	return ratelimit.New(s.deps.Cache, &ratelimit.Config{
		RequestsPerWindow: int64(requestsPerMinute),
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:login:",
	})
}
