package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	webdavUserEnv    = "WEBDAV_USERNAME"
	webdavPassEnv    = "WEBDAV_PASSWORD"
	apiKeyEnv        = "OPENAI_API_KEY"
	inferenceURLEnv  = "OPENAI_BASE_URL"
	inferenceModeEnv = "SONG_CLASSIFIER_MODEL"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	dir    string
	config *Config
}

// NewManager creates a new Manager rooted at dir.
func NewManager(dir string, config *Config) *Manager {
	return &Manager{dir: dir, config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update updates the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"sync_repo_changed", oldConfig.SyncRepo != config.SyncRepo,
			"webdav_changed", oldConfig.WebDAV != config.WebDAV,
			"logger_changed", oldConfig.Logger != config.Logger,
		)
	}
}

// Save writes the current configuration to config.json.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := writeConfig(m.ConfigFile(), m.config); err != nil {
		slog.Error("failed to save config", "path", m.ConfigFile(), "error", err)
		return err
	}
	slog.Debug("Configuration saved successfully", "path", m.ConfigFile())
	return nil
}

// EnsureDirectories creates the configuration directory if it doesn't exist.
func (m *Manager) EnsureDirectories() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", m.dir, err)
	}
	return nil
}

// SetSyncRepo stores the shared repository URL.
func (m *Manager) SetSyncRepo(url string) error {
	cfg := *m.Get()
	cfg.SyncRepo = strings.TrimSpace(url)
	m.Update(&cfg)
	if err := m.Save(); err != nil {
		return err
	}
	slog.Info("Sync repository configured", "url", cfg.SyncRepo)
	return nil
}

// SetWebDAV stores the remote transport settings. A blank host keeps the stored one.
func (m *Manager) SetWebDAV(host, username, password string) error {
	cfg := *m.Get()
	if host = strings.TrimSpace(host); host != "" {
		cfg.WebDAV.Host = host
	}
	cfg.WebDAV.Username = username
	cfg.WebDAV.Password = password
	if err := validate(&cfg); err != nil {
		return err
	}
	m.Update(&cfg)
	return m.Save()
}

// WebDAVCredentials resolves each credential from the explicit override, then
// the environment, then config.json.
func (m *Manager) WebDAVCredentials(username, password string) (string, string) {
	stored := m.Get().WebDAV
	return firstNonEmpty(username, os.Getenv(webdavUserEnv), stored.Username),
		firstNonEmpty(password, os.Getenv(webdavPassEnv), stored.Password)
}

// InferenceSettings returns the inference settings with environment overrides applied.
func (m *Manager) InferenceSettings() (Inference, string) {
	settings := m.Get().Inference
	settings.BaseURL = firstNonEmpty(os.Getenv(inferenceURLEnv), settings.BaseURL)
	settings.Model = firstNonEmpty(os.Getenv(inferenceModeEnv), settings.Model)
	return settings, strings.TrimSpace(os.Getenv(apiKeyEnv))
}

// redactedCfg gets a redacted copy of the Config
func (m *Manager) redactedCfg() Config {
	cfgCpy := *m.Get()
	if cfgCpy.WebDAV.Password != "" {
		cfgCpy.WebDAV.Password = "<redacted>"
	}
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := json.MarshalIndent(m.redactedCfg(), "", "  ")
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
