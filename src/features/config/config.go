package config

// Config holds the application configuration persisted in config.json.
type Config struct {
	SyncRepo  string    `json:"sync_repo,omitempty"`
	WebDAV    WebDAV    `json:"webdav"`
	Logger    Logger    `json:"logger"`
	Inference Inference `json:"inference"`
}

// WebDAV holds the remote transport credentials.
type WebDAV struct {
	Host     string `json:"host,omitempty" validate:"omitempty,url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=text json logfmt"`
}

// Inference holds the settings of the OpenAI compatible inference provider.
// The API key is only read from the environment.
type Inference struct {
	BaseURL        string `json:"base_url,omitempty" validate:"omitempty,url"`
	Model          string `json:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"gte=0"`
}

const (
	DefaultModel          = "gpt-5-nano"
	DefaultBaseURL        = "https://api.openai.com/v1/chat/completions"
	DefaultTimeoutSeconds = 60
)

// applyDefaults fills the fields a fresh install leaves empty.
func applyDefaults(cfg *Config) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "text"
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = DefaultModel
	}
	if cfg.Inference.BaseURL == "" {
		cfg.Inference.BaseURL = DefaultBaseURL
	}
	if cfg.Inference.TimeoutSeconds == 0 {
		cfg.Inference.TimeoutSeconds = DefaultTimeoutSeconds
	}
}
