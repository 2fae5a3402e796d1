package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/contre95/song-classifier/src/music"
	"github.com/go-playground/validator/v10"
)

// Load reads config.json from dir and returns a new Manager.
// An empty dir resolves to DefaultDir. A missing file yields the defaults; it is
// only written once something is explicitly saved.
func Load(dir string) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, music.Wrap(music.ErrConfiguration, "config.Load", "resolve config dir", err)
		}
	}

	manager := NewManager(dir, &Config{})
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(manager.ConfigFile())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("Config file not found, using defaults", "path", manager.ConfigFile())
	case err != nil:
		return nil, music.Wrap(music.ErrConfiguration, "config.Load", "read "+manager.ConfigFile(), err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, music.Wrap(music.ErrConfiguration, "config.Load", "decode "+manager.ConfigFile(), err)
		}
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	manager.config = &cfg
	return manager, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return music.Wrap(music.ErrConfiguration, "config", "validation failed", err)
	}
	return nil
}

// writeConfig persists cfg as indented JSON, replacing the file atomically.
func writeConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
