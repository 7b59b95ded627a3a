// Package main is the entrypoint for the shoplist-go server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/shoplist/shoplist-go/internal/config"
	"github.com/shoplist/shoplist-go/internal/identity"
	"github.com/shoplist/shoplist-go/internal/platform/cache"
	"github.com/shoplist/shoplist-go/internal/server"
	"github.com/shoplist/shoplist-go/internal/store"

	// Register cache drivers
	_ "github.com/shoplist/shoplist-go/internal/platform/cache/loader"

	// Register store drivers
	_ "github.com/shoplist/shoplist-go/internal/store/json"
	_ "github.com/shoplist/shoplist-go/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	modeFlag := flag.String("mode", "", "Operating mode: prod or dev (overrides config)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	externalOrigin := flag.String("external-origin", "", "External origin (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, selfsigned, or acme (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: json or sqlite (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory for the store driver (overrides config)")
	cacheDriver := flag.String("cache-driver", "", "Cache driver: memory or valkey (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, or error (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text or json (overrides config)")
	adminEmail := flag.String("admin-email", "", "Bootstrap admin email (overrides config)")
	adminPassword := flag.String("admin-password", "", "Bootstrap admin password (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		ModeFlag:   *modeFlag,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:     listenAddr,
			ExternalOrigin: externalOrigin,
			TLSMode:        tlsMode,
			StoreDriver:    storeDriver,
			DataDir:        dataDir,
			CacheDriver:    cacheDriver,
			LogLevel:       logLevel,
			LogFormat:      logFormat,
			AdminEmail:     adminEmail,
			AdminPassword:  adminPassword,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("effective configuration", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence driver (users, lists, items, shares)
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store driver", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if err := driver.Init(ctx); err != nil {
		logger.Error("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name(), "data_dir", cfg.Store.DataDir)

	// Cache (sessions, login rate limiting)
	cacheDriverName := cfg.Cache.Driver
	if cacheDriverName == "" {
		cacheDriverName = "memory"
	}
	cacheInstance, err := cache.NewFromConfig(cacheDriverName, cfg.Cache.Drivers)
	if err != nil {
		logger.Error("failed to create cache", "driver", cacheDriverName, "error", err)
		os.Exit(1)
	}
	defer cacheInstance.Close()

	// Identity: users persist through the store driver, sessions live in
	// the cache so they survive as long as the cache does.
	partyRepo := identity.NewStorePartyRepo(driver)
	sessionRepo := identity.NewCacheSessionRepo(cacheInstance)
	userAuth := identity.NewUserAuth(cfg.Server.BCryptCost)

	// Bootstrap admin user if configured
	if cfg.Server.BootstrapAdmin.Email != "" {
		bootstrap := identity.NewBootstrap(partyRepo, userAuth, logger)
		created, err := bootstrap.Run(ctx, identity.SeededUser{
			Email:    cfg.Server.BootstrapAdmin.Email,
			Password: cfg.Server.BootstrapAdmin.Password,
		}, nil)
		if err != nil {
			logger.Error("failed to bootstrap admin user", "error", err)
			os.Exit(1)
		}
		if created > 0 {
			logger.Info("bootstrapped admin user", "email", cfg.Server.BootstrapAdmin.Email)
		}
	}

	deps := &server.Deps{
		PartyRepo:   partyRepo,
		SessionRepo: sessionRepo,
		UserAuth:    userAuth,
		Store:       driver,
		Cache:       cacheInstance,
	}

	srv, err := server.New(cfg, logger, deps)
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

// newLogger builds the configured slog logger: JSON for machines, tint for
// humans on a terminal.
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

	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
