package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shoplist/shoplist-go/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Mode != "prod" {
		t.Errorf("default mode = %q, want prod", cfg.Mode)
	}
	if cfg.TLS.Mode != "selfsigned" {
		t.Errorf("prod tls.mode = %q, want selfsigned", cfg.TLS.Mode)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("prod store.driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("prod logging.format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_DevPreset(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{ModeFlag: "dev"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.TLS.Mode != "off" {
		t.Errorf("dev tls.mode = %q, want off", cfg.TLS.Mode)
	}
	if cfg.Store.Driver != "json" {
		t.Errorf("dev store.driver = %q, want json", cfg.Store.Driver)
	}
	if cfg.Server.LoginRateLimit != 0 {
		t.Errorf("dev login_rate_limit = %d, want 0", cfg.Server.LoginRateLimit)
	}
}

func TestLoad_FileOverridesPreset(t *testing.T) {
	path := writeConfig(t, `
mode = "dev"
listen_addr = ":9000"

[store]
driver = "sqlite"
data_dir = "/var/lib/shoplist"

[server]
session_ttl_hours = 48

[server.bootstrap_admin]
email = "admin@example.com"
password = "changeme"

[cache]
driver = "valkey"

[cache.drivers.valkey]
address = "localhost:6379"
`)

	cfg, err := config.Load(config.LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Mode != "dev" {
		t.Errorf("mode = %q, want dev", cfg.Mode)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.ListenAddr)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DataDir != "/var/lib/shoplist" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.SessionTTLHours != 48 {
		t.Errorf("session_ttl_hours = %d", cfg.Server.SessionTTLHours)
	}
	if cfg.Server.BootstrapAdmin.Email != "admin@example.com" {
		t.Errorf("bootstrap admin = %+v", cfg.Server.BootstrapAdmin)
	}
	if cfg.Cache.Driver != "valkey" {
		t.Errorf("cache.driver = %q", cfg.Cache.Driver)
	}
	valkeyCfg, ok := cfg.Cache.Drivers["valkey"].(map[string]any)
	if !ok || valkeyCfg["address"] != "localhost:6379" {
		t.Errorf("cache.drivers.valkey = %v", cfg.Cache.Drivers["valkey"])
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":9000"

[tls]
mode = "off"
`)

	addr := ":7777"
	tlsMode := "selfsigned"
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: path,
		FlagOverrides: config.FlagOverrides{
			ListenAddr: &addr,
			TLSMode:    &tlsMode,
		},
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ListenAddr != ":7777" {
		t.Errorf("flag did not override listen_addr: %q", cfg.ListenAddr)
	}
	if cfg.TLS.Mode != "selfsigned" {
		t.Errorf("flag did not override tls.mode: %q", cfg.TLS.Mode)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load(config.LoaderOptions{ConfigPath: "/nonexistent/config.toml"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, "not [valid toml")
	if _, err := config.Load(config.LoaderOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_InvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"bad tls mode", "[tls]\nmode = \"maybe\"", "tls.mode"},
		{"bad store driver", "[store]\ndriver = \"oracle\"", "store.driver"},
		{"bad cache driver", "[cache]\ndriver = \"redis2\"", "cache.driver"},
		{"bad log level", "[logging]\nlevel = \"verbose\"", "logging.level"},
		{"static without certs", "[tls]\nmode = \"static\"", "cert_file"},
		{"acme without domain", "[tls]\nmode = \"acme\"", "acme"},
		{"admin without password", "[server.bootstrap_admin]\nemail = \"a@b.c\"", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.toml)
			_, err := config.Load(config.LoaderOptions{ConfigPath: path})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	if _, err := config.Load(config.LoaderOptions{ModeFlag: "staging"}); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestRedacted(t *testing.T) {
	cfg := config.ProdConfig()
	cfg.Server.BootstrapAdmin.Email = "admin@example.com"
	cfg.Server.BootstrapAdmin.Password = "hunter2"

	red := cfg.Redacted()
	if red.Server.BootstrapAdmin.Password != "***" {
		t.Errorf("password not redacted: %q", red.Server.BootstrapAdmin.Password)
	}
	if cfg.Server.BootstrapAdmin.Password != "hunter2" {
		t.Error("redaction mutated original")
	}
}
