// Package config provides configuration loading and validation.
package config

// Config holds the server configuration.
type Config struct {
	// Mode is the effective operating mode: prod or dev.
	Mode string `json:"mode"`

	// ListenAddr is the address to listen on.
	// Example: ":8580"
	ListenAddr string `json:"listen_addr"`

	// ExternalOrigin is the public origin (scheme + host + port) for this
	// instance. Used for cookies and self-signed certificate names.
	ExternalOrigin string `json:"external_origin"`

	Server  ServerConfig  `json:"server"`
	TLS     TLSConfig     `json:"tls"`
	Store   StoreConfig   `json:"store"`
	Cache   CacheConfig   `json:"cache"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds request-handling settings.
type ServerConfig struct {
	// TrustedProxies are CIDR ranges whose X-Forwarded-For is honored.
	TrustedProxies []string `json:"trusted_proxies"`

	// SessionTTLHours is how long a login session stays valid.
	SessionTTLHours int `json:"session_ttl_hours"`

	// BCryptCost is the password hashing cost factor.
	BCryptCost int `json:"bcrypt_cost"`

	// LoginRateLimit is the number of login attempts allowed per client
	// per minute. Zero disables login rate limiting.
	LoginRateLimit int `json:"login_rate_limit"`

	// BootstrapAdmin is created at startup when configured.
	BootstrapAdmin BootstrapAdmin `json:"bootstrap_admin"`
}

// BootstrapAdmin holds startup admin credentials.
type BootstrapAdmin struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

// TLSConfig holds TLS-related settings.
type TLSConfig struct {
	// Mode is one of: off, static, selfsigned, acme
	Mode string `json:"mode"`

	// CertFile and KeyFile for static mode
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`

	// HTTPPort for HTTP listener (used for ACME challenges and redirects)
	HTTPPort int `json:"http_port"`

	// HTTPSPort for HTTPS listener
	HTTPSPort int `json:"https_port"`

	// SelfSignedDir is where generated certificates are stored.
	SelfSignedDir string `json:"self_signed_dir"`

	ACME ACMEConfig `json:"acme"`
}

// ACMEConfig holds ACME certificate settings.
type ACMEConfig struct {
	Email      string `json:"email"`
	Domain     string `json:"domain"`
	Directory  string `json:"directory"`
	StorageDir string `json:"storage_dir"`
	UseStaging bool   `json:"use_staging"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	// Driver is one of the registered store drivers (json, sqlite).
	Driver string `json:"driver"`

	// DataDir is where the driver keeps its files.
	DataDir string `json:"data_dir"`
}

// CacheConfig selects the cache driver used for sessions and rate limiting.
type CacheConfig struct {
	// Driver is one of the registered cache drivers (memory, valkey).
	Driver string `json:"driver"`

	// Drivers holds per-driver settings keyed by driver name.
	Drivers map[string]any `json:"drivers"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `json:"level"`

	// Format is one of: text, json
	Format string `json:"format"`
}

// Redacted returns a copy safe for logging: secrets are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Server.BootstrapAdmin.Password != "" {
		out.Server.BootstrapAdmin.Password = "***"
	}
	return out
}
