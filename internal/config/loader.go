package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Mode represents the server operating mode.
type Mode string

const (
	ModeProd Mode = "prod"
	ModeDev  Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "":
		return ModeProd, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of prod, dev", s)
	}
}

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// ModeFlag is the --mode flag value (overrides config file mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr     *string
	ExternalOrigin *string
	TLSMode        *string
	StoreDriver    *string
	DataDir        *string
	CacheDriver    *string
	LogLevel       *string
	LogFormat      *string
	AdminEmail     *string
	AdminPassword  *string
}

// fileConfig mirrors Config but with pointer fields to detect presence.
type fileConfig struct {
	Mode string `toml:"mode"`

	ListenAddr     string `toml:"listen_addr"`
	ExternalOrigin string `toml:"external_origin"`

	Server  *serverConfig  `toml:"server"`
	TLS     *tlsConfig     `toml:"tls"`
	Store   *storeConfig   `toml:"store"`
	Cache   *cacheConfig   `toml:"cache"`
	Logging *loggingConfig `toml:"logging"`
}

type serverConfig struct {
	TrustedProxies  []string        `toml:"trusted_proxies"`
	SessionTTLHours int             `toml:"session_ttl_hours"`
	BCryptCost      int             `toml:"bcrypt_cost"`
	LoginRateLimit  *int            `toml:"login_rate_limit"`
	BootstrapAdmin  *bootstrapAdmin `toml:"bootstrap_admin"`
}

type bootstrapAdmin struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type tlsConfig struct {
	Mode          string      `toml:"mode"`
	CertFile      string      `toml:"cert_file"`
	KeyFile       string      `toml:"key_file"`
	HTTPPort      int         `toml:"http_port"`
	HTTPSPort     int         `toml:"https_port"`
	SelfSignedDir string      `toml:"self_signed_dir"`
	ACME          *acmeConfig `toml:"acme"`
}

type acmeConfig struct {
	Email      string `toml:"email"`
	Domain     string `toml:"domain"`
	Directory  string `toml:"directory"`
	StorageDir string `toml:"storage_dir"`
	UseStaging bool   `toml:"use_staging"`
}

type storeConfig struct {
	Driver  string `toml:"driver"`
	DataDir string `toml:"data_dir"`
}

type cacheConfig struct {
	Driver  string         `toml:"driver"`
	Drivers map[string]any `toml:"drivers"`
}

type loggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > mode in config file > default (prod)
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay CLI flags
//  5. Validate enum fields
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	if opts.ConfigPath != "" {
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
	}

	modeStr := "prod"
	if fc.Mode != "" {
		modeStr = fc.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}

	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	cfg := presetForMode(mode)

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := validateEnums(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func presetForMode(mode Mode) *Config {
	switch mode {
	case ModeDev:
		return DevConfig()
	default:
		return ProdConfig()
	}
}

// ProdConfig returns production-safe defaults.
func ProdConfig() *Config {
	return &Config{
		Mode:           string(ModeProd),
		ListenAddr:     ":8580",
		ExternalOrigin: "https://localhost:8580",
		Server: ServerConfig{
			TrustedProxies:  []string{"127.0.0.0/8", "::1/128"},
			SessionTTLHours: 24,
			BCryptCost:      12,
			LoginRateLimit:  10,
		},
		TLS: TLSConfig{
			Mode:          "selfsigned",
			HTTPPort:      8680,
			HTTPSPort:     8580,
			SelfSignedDir: ".shoplist/certs",
			ACME: ACMEConfig{
				Directory:  "https://acme-v02.api.letsencrypt.org/directory",
				StorageDir: ".shoplist/acme",
				UseStaging: false,
			},
		},
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: ".shoplist/data",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DevConfig returns development mode defaults.
func DevConfig() *Config {
	return &Config{
		Mode:           string(ModeDev),
		ListenAddr:     ":8580",
		ExternalOrigin: "http://localhost:8580",
		Server: ServerConfig{
			TrustedProxies:  []string{"127.0.0.0/8", "::1/128"},
			SessionTTLHours: 168,
			BCryptCost:      10,
			LoginRateLimit:  0,
		},
		TLS: TLSConfig{
			Mode:          "off",
			HTTPPort:      8680,
			HTTPSPort:     8580,
			SelfSignedDir: ".shoplist/certs",
			ACME: ACMEConfig{
				Directory:  "https://acme-staging-v02.api.letsencrypt.org/directory",
				StorageDir: ".shoplist/acme",
				UseStaging: true,
			},
		},
		Store: StoreConfig{
			Driver:  "json",
			DataDir: ".shoplist/data",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.ExternalOrigin != "" {
		cfg.ExternalOrigin = fc.ExternalOrigin
	}

	if fc.Server != nil {
		if len(fc.Server.TrustedProxies) > 0 {
			cfg.Server.TrustedProxies = fc.Server.TrustedProxies
		}
		if fc.Server.SessionTTLHours > 0 {
			cfg.Server.SessionTTLHours = fc.Server.SessionTTLHours
		}
		if fc.Server.BCryptCost > 0 {
			cfg.Server.BCryptCost = fc.Server.BCryptCost
		}
		if fc.Server.LoginRateLimit != nil {
			cfg.Server.LoginRateLimit = *fc.Server.LoginRateLimit
		}
		if fc.Server.BootstrapAdmin != nil {
			cfg.Server.BootstrapAdmin.Email = fc.Server.BootstrapAdmin.Email
			cfg.Server.BootstrapAdmin.Password = fc.Server.BootstrapAdmin.Password
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
		if fc.TLS.HTTPPort != 0 {
			cfg.TLS.HTTPPort = fc.TLS.HTTPPort
		}
		if fc.TLS.HTTPSPort != 0 {
			cfg.TLS.HTTPSPort = fc.TLS.HTTPSPort
		}
		if fc.TLS.SelfSignedDir != "" {
			cfg.TLS.SelfSignedDir = fc.TLS.SelfSignedDir
		}
		if fc.TLS.ACME != nil {
			if fc.TLS.ACME.Email != "" {
				cfg.TLS.ACME.Email = fc.TLS.ACME.Email
			}
			if fc.TLS.ACME.Domain != "" {
				cfg.TLS.ACME.Domain = fc.TLS.ACME.Domain
			}
			if fc.TLS.ACME.Directory != "" {
				cfg.TLS.ACME.Directory = fc.TLS.ACME.Directory
			}
			if fc.TLS.ACME.StorageDir != "" {
				cfg.TLS.ACME.StorageDir = fc.TLS.ACME.StorageDir
			}
			cfg.TLS.ACME.UseStaging = fc.TLS.ACME.UseStaging
		}
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
	}

	if fc.Cache != nil {
		if fc.Cache.Driver != "" {
			cfg.Cache.Driver = fc.Cache.Driver
		}
		if len(fc.Cache.Drivers) > 0 {
			cfg.Cache.Drivers = fc.Cache.Drivers
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

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.ExternalOrigin != nil && *f.ExternalOrigin != "" {
		cfg.ExternalOrigin = *f.ExternalOrigin
	}
	if f.TLSMode != nil && *f.TLSMode != "" {
		cfg.TLS.Mode = *f.TLSMode
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.Store.DataDir = *f.DataDir
	}
	if f.CacheDriver != nil && *f.CacheDriver != "" {
		cfg.Cache.Driver = *f.CacheDriver
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.LogFormat != nil && *f.LogFormat != "" {
		cfg.Logging.Format = *f.LogFormat
	}
	if f.AdminEmail != nil && *f.AdminEmail != "" {
		cfg.Server.BootstrapAdmin.Email = *f.AdminEmail
	}
	if f.AdminPassword != nil && *f.AdminPassword != "" {
		cfg.Server.BootstrapAdmin.Password = *f.AdminPassword
	}
}

// validateEnums validates enum-like config fields and returns an error for
// invalid values.
func validateEnums(cfg *Config) error {
	switch cfg.TLS.Mode {
	case "off", "static", "selfsigned", "acme":
	default:
		return fmt.Errorf("invalid tls.mode %q: must be one of off, static, selfsigned, acme", cfg.TLS.Mode)
	}

	if cfg.TLS.Mode == "static" {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when tls.mode is static")
		}
	}
	if cfg.TLS.Mode == "acme" {
		if cfg.TLS.ACME.Email == "" || cfg.TLS.ACME.Domain == "" {
			return fmt.Errorf("tls.acme.email and tls.acme.domain are required when tls.mode is acme")
		}
	}

	switch cfg.Store.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of json, sqlite", cfg.Store.Driver)
	}

	switch cfg.Cache.Driver {
	case "", "memory", "valkey":
	default:
		return fmt.Errorf("invalid cache.driver %q: must be one of memory, valkey", cfg.Cache.Driver)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: must be one of text, json", cfg.Logging.Format)
	}

	if cfg.Server.BootstrapAdmin.Email != "" && cfg.Server.BootstrapAdmin.Password == "" {
		return fmt.Errorf("server.bootstrap_admin.password is required when an admin email is configured")
	}

	return nil
}
