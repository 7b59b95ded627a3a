package tls_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shoplist/shoplist-go/internal/config"
	"github.com/shoplist/shoplist-go/internal/tls"
)

func TestManager_Off(t *testing.T) {
	m := tls.NewManager(&config.TLSConfig{Mode: "off"}, nil)
	cfg, err := m.GetTLSConfig("localhost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Error("off mode must return nil config")
	}
}

func TestManager_SelfSignedGeneratesAndReloads(t *testing.T) {
	dir := t.TempDir()
	m := tls.NewManager(&config.TLSConfig{Mode: "selfsigned", SelfSignedDir: dir}, nil)

	cfg, err := m.GetTLSConfig("localhost")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("expected one certificate, got %d", len(cfg.Certificates))
	}

	// Second call must reuse the written files.
	again, err := m.GetTLSConfig("localhost")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(again.Certificates) != 1 {
		t.Error("expected certificate on reload")
	}
}

func TestManager_StaticMissingFiles(t *testing.T) {
	m := tls.NewManager(&config.TLSConfig{Mode: "static"}, nil)
	if _, err := m.GetTLSConfig("localhost"); !errors.Is(err, tls.ErrMissingCert) {
		t.Errorf("expected ErrMissingCert, got %v", err)
	}
}

func TestManager_InvalidMode(t *testing.T) {
	m := tls.NewManager(&config.TLSConfig{Mode: "maybe"}, nil)
	if _, err := m.GetTLSConfig("localhost"); !errors.Is(err, tls.ErrInvalidTLSMode) {
		t.Errorf("expected ErrInvalidTLSMode, got %v", err)
	}
}

func TestACMEManager_RequiresDomainAndEmail(t *testing.T) {
	dir := t.TempDir()

	m := tls.NewACMEManager(&config.ACMEConfig{StorageDir: dir}, nil)
	if err := m.Init(t.Context()); err == nil {
		t.Error("expected error without domain")
	}

	m = tls.NewACMEManager(&config.ACMEConfig{
		Domain:     "example.com",
		StorageDir: filepath.Join(dir, "acme"),
	}, nil)
	if err := m.Init(t.Context()); err == nil {
		t.Error("expected error without email")
	}
}
