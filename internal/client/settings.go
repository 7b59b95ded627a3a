package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Settings holds client-side display preferences. They never round-trip to
// the server.
type Settings struct {
	// HideCompleted filters completed items out of list views.
	HideCompleted bool `json:"hide_completed"`

	// LastListID is the list that was open when the client exited.
	LastListID string `json:"last_list_id,omitempty"`

	// ServerURL remembers the last server the client connected to.
	ServerURL string `json:"server_url,omitempty"`
}

// SettingsStore persists Settings as a JSON file. Writes are atomic so a
// crash mid-save never corrupts the file.
type SettingsStore struct {
	mu       sync.Mutex
	path     string
	settings Settings
}

// OpenSettings loads settings from path, creating defaults if the file does
// not exist.
func OpenSettings(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.settings); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update applies fn to the settings and persists the result.
func (s *SettingsStore) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.settings
	fn(&updated)

	if err := s.save(&updated); err != nil {
		return err
	}
	s.settings = updated
	return nil
}

// SetHideCompleted toggles the completed-item filter and persists it.
func (s *SettingsStore) SetHideCompleted(hide bool) error {
	return s.Update(func(st *Settings) { st.HideCompleted = hide })
}

func (s *SettingsStore) save(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}
