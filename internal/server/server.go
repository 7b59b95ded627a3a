// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/shoplist/shoplist-go/internal/config"
	"github.com/shoplist/shoplist-go/internal/identity"
	"github.com/shoplist/shoplist-go/internal/platform/cache"
	"github.com/shoplist/shoplist-go/internal/platform/logutil"
	"github.com/shoplist/shoplist-go/internal/ratelimit"
	"github.com/shoplist/shoplist-go/internal/server/api"
	"github.com/shoplist/shoplist-go/internal/store"
	shoptls "github.com/shoplist/shoplist-go/internal/tls"
)

var ErrMissingDep = errors.New("missing required dependency")

// Deps holds all server dependencies.
type Deps struct {
	// Required: identity and auth
	PartyRepo   identity.PartyRepo
	SessionRepo identity.SessionRepo
	UserAuth    *identity.UserAuth

	// Required: list persistence
	Store store.ListStore

	// Optional: cache for login rate limiting (nil disables the limiter)
	Cache cache.CacheWithCounter
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg            *config.Config
	httpServer     *http.Server
	logger         *slog.Logger
	deps           *Deps
	trustedProxies *TrustedProxies
	authHandler    *api.AuthHandler
	listsHandler   *api.ListsHandler
	loginLimiter   *ratelimit.Limiter
	acmeManager    *shoptls.ACMEManager
	challengeSrv   *http.Server
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}
	logger = logutil.NoopIfNil(logger)

	sessionTTL := time.Duration(cfg.Server.SessionTTLHours) * time.Hour
	authHandler := api.NewAuthHandler(deps.PartyRepo, deps.SessionRepo, deps.UserAuth, sessionTTL)
	listsHandler := api.NewListsHandler(deps.Store, deps.PartyRepo)

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		deps:           deps,
		trustedProxies: NewTrustedProxies(cfg.Server.TrustedProxies),
		authHandler:    authHandler,
		listsHandler:   listsHandler,
	}
	s.loginLimiter = s.newLoginLimiter(cfg.Server.LoginRateLimit)

	router := s.setupRoutes()

	var handler http.Handler = router
	if cfg.TLS.Mode == "off" {
		// Cleartext HTTP/2 so local clients get multiplexing without TLS.
		handler = h2c.NewHandler(router, &http2.Server{})
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"external_origin", s.cfg.ExternalOrigin,
		"tls_mode", s.cfg.TLS.Mode,
		"store_driver", s.cfg.Store.Driver,
	)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()

	case "static", "selfsigned":
		manager := shoptls.NewManager(&s.cfg.TLS, s.logger)
		hostname := extractHostname(s.cfg.ExternalOrigin)
		tlsConfig, err := manager.GetTLSConfig(hostname)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		return s.httpServer.ListenAndServeTLS("", "")

	case "acme":
		return s.startACME()

	default:
		return fmt.Errorf("%w: %s", shoptls.ErrInvalidTLSMode, s.cfg.TLS.Mode)
	}
}

// startACME obtains a certificate via lego and serves HTTPS. The HTTP
// listener stays up to answer HTTP-01 challenges and redirect to HTTPS.
func (s *Server) startACME() error {
	s.acmeManager = shoptls.NewACMEManager(&s.cfg.TLS.ACME, s.logger)

	challengeHandler := s.acmeManager.ChallengeHandler()
	s.challengeSrv = &http.Server{
		Addr: fmt.Sprintf(":%d", s.cfg.TLS.HTTPPort),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Path) >= len("/.well-known/acme-challenge/") &&
				r.URL.Path[:len("/.well-known/acme-challenge/")] == "/.well-known/acme-challenge/" {
				challengeHandler.ServeHTTP(w, r)
				return
			}
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.challengeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ACME challenge listener failed", "error", err)
		}
	}()

	if err := s.acmeManager.Init(context.Background()); err != nil {
		return fmt.Errorf("ACME initialization failed: %w", err)
	}

	s.httpServer.TLSConfig = s.acmeManager.GetTLSConfig()
	return s.httpServer.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if s.challengeSrv != nil {
		s.challengeSrv.Shutdown(ctx)
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured root handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// extractHostname extracts just the hostname from an external origin URL.
// TLS certificate generation needs the hostname without scheme or port.
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

func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}
	if deps.PartyRepo == nil {
		return fmt.Errorf("%w: PartyRepo", ErrMissingDep)
	}
	if deps.SessionRepo == nil {
		return fmt.Errorf("%w: SessionRepo", ErrMissingDep)
	}
	if deps.UserAuth == nil {
		return fmt.Errorf("%w: UserAuth", ErrMissingDep)
	}
	if deps.Store == nil {
		return fmt.Errorf("%w: Store", ErrMissingDep)
	}
	return nil
}
