package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName         = "song-classifier"
	configFileName  = "config.json"
	metadataFile    = "metadata.csv"
	albumsFile      = "albums.csv"
	tempDirName     = "temp"
	repoDirName     = "metadata-repo"
	lockFileName    = ".git-sync.lock"
	configDirEnvVar = "SONG_CLASSIFIER_CONFIG_DIR"
)

// DefaultDir resolves the per-user configuration directory.
func DefaultDir() (string, error) {
	if dir := os.Getenv(configDirEnvVar); dir != "" {
		return dir, nil
	}
	if runtime.GOOS == "windows" {
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, appName), nil
		}
	} else if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, appName), nil
	}
	return filepath.Join(home, ".config", appName), nil
}

// TableFiles lists the record store files that are synchronised, in a fixed order.
func TableFiles() []string {
	return []string{metadataFile, albumsFile}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string { return m.dir }

// ConfigFile returns the path of config.json.
func (m *Manager) ConfigFile() string { return filepath.Join(m.dir, configFileName) }

// MetadataFile returns the path of the track table.
func (m *Manager) MetadataFile() string { return filepath.Join(m.dir, metadataFile) }

// AlbumsFile returns the path of the album table.
func (m *Manager) AlbumsFile() string { return filepath.Join(m.dir, albumsFile) }

// RepoDir returns where the shared repository is cloned.
func (m *Manager) RepoDir() string { return filepath.Join(m.dir, repoDirName) }

// LockFile returns the advisory lock guarding the shared repository clone.
func (m *Manager) LockFile() string { return filepath.Join(m.dir, lockFileName) }

// TempDir returns, creating it if needed, the scratch directory for remote fetches.
func (m *Manager) TempDir() (string, error) {
	dir := filepath.Join(m.dir, tempDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory %s: %w", dir, err)
	}
	return dir, nil
}
