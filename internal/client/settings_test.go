package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shoplist/shoplist-go/internal/client"
)

func TestSettings_DefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := client.OpenSettings(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	settings := store.Get()
	if settings.HideCompleted {
		t.Error("expected HideCompleted to default to false")
	}
}

func TestSettings_PersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store, err := client.OpenSettings(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := store.SetHideCompleted(true); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if err := store.Update(func(s *client.Settings) { s.LastListID = "list-1" }); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	reopened, err := client.OpenSettings(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	settings := reopened.Get()
	if !settings.HideCompleted || settings.LastListID != "list-1" {
		t.Errorf("settings lost across reopen: %+v", settings)
	}
}

func TestSettings_CorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := client.OpenSettings(path); err == nil {
		t.Error("expected error for corrupt settings file")
	}
}
