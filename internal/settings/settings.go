package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the user toggles the capture core reads but does not own.
type Settings struct {
	SearchEnabled bool      `yaml:"search_enabled"`
	UpdatedAt     time.Time `yaml:"updated_at,omitempty"`
}

// Load reads settings from path. A missing file is reported with an error
// wrapping fs.ErrNotExist.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings %q: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings %q: %w", path, err)
	}
	return s, nil
}

// LoadOr is Load with a fallback for a missing file.
func LoadOr(path string, fallback bool) (Settings, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{SearchEnabled: fallback}, nil
	}
	return s, err
}

// Save writes s atomically to path, creating parent directories.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	s.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming settings file: %w", err)
	}
	return nil
}
