package chat

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/flowchat/pkg/flowgraph/config"
)

// Environment variables read at startup.
const (
	EnvAPIKey   = "ANTHROPIC_API_KEY"
	EnvConfig   = "CLAUDECHAT_CONFIG"
	EnvModel    = "CLAUDECHAT_MODEL"
	EnvLogLevel = "CLAUDECHAT_LOG_LEVEL"
)

// DefaultConfigFile is read from the working directory when EnvConfig is unset.
const DefaultConfigFile = "claudechat.yaml"

// ErrMissingAPIKey is returned by RequireAPIKey.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " environment variable is required")

// Settings is the resolved runtime configuration.
type Settings struct {
	Model        ModelConfig
	SystemPrompt string
	BaseURL      string
	LogLevel     slog.Level

	// Markdown renders replies with glamour when stdout is a terminal.
	Markdown bool

	Checkpoint CheckpointSettings
	Metrics    bool
	Tracing    TracingSettings
}

// CheckpointSettings selects where conversations are checkpointed.
// An empty Backend disables checkpointing.
type CheckpointSettings struct {
	Backend     string
	Target      string
	ResumeRunID string
	TTL         time.Duration
}

// TracingSettings configures the OTLP/HTTP span exporter.
// An empty Endpoint disables tracing.
type TracingSettings struct {
	// Endpoint is the collector URL, e.g. http://localhost:4318/v1/traces.
	Endpoint    string
	ServiceName string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Model:        DefaultModelConfig(),
		SystemPrompt: DefaultSystemPrompt,
		LogLevel:     slog.LevelInfo,
		Markdown:     true,
	}
}

// LoadSettings resolves settings from the config file and environment.
// getenv is typically os.Getenv.
func LoadSettings(getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	path := getenv(EnvConfig)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	cfg := config.New(nil)
	if _, err := os.Stat(path); err == nil || explicit {
		loaded, err := config.FromFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
		cfg = loaded
	}

	if model := getenv(EnvModel); model != "" {
		cfg = cfg.With("model", cfg.Sub("model").With("name", model).Raw())
	}
	if level := getenv(EnvLogLevel); level != "" {
		cfg = cfg.With("log_level", level)
	}

	return SettingsFromConfig(cfg)
}

// SettingsFromConfig maps a config tree onto Settings, filling defaults.
func SettingsFromConfig(cfg config.Config) (Settings, error) {
	s := DefaultSettings()

	model := cfg.Sub("model")
	s.Model.Model = model.String("name", s.Model.Model)
	s.Model.Temperature = model.Float("temperature", s.Model.Temperature)
	s.Model.MaxTokens = model.Int("max_tokens", s.Model.MaxTokens)
	s.BaseURL = model.String("base_url", "")
	if s.Model.MaxTokens <= 0 {
		return Settings{}, fmt.Errorf("model.max_tokens must be positive, got %d", s.Model.MaxTokens)
	}

	s.SystemPrompt = cfg.String("system_prompt", s.SystemPrompt)
	s.Model.DefaultSystemPrompt = s.SystemPrompt
	s.Markdown = cfg.Bool("markdown", s.Markdown)

	if err := s.LogLevel.UnmarshalText([]byte(cfg.String("log_level", "info"))); err != nil {
		return Settings{}, fmt.Errorf("log_level: %w", err)
	}

	cp := cfg.Sub("checkpoint")
	s.Checkpoint = CheckpointSettings{
		Backend:     strings.ToLower(cp.String("backend", "")),
		Target:      cp.String("target", ""),
		ResumeRunID: cp.String("resume_run_id", ""),
		TTL:         cp.Duration("ttl", 0),
	}
	if s.Checkpoint.ResumeRunID != "" && s.Checkpoint.Backend == "" {
		return Settings{}, errors.New("checkpoint.resume_run_id requires checkpoint.backend")
	}

	s.Metrics = cfg.Sub("metrics").Bool("enabled", false)

	tr := cfg.Sub("tracing")
	s.Tracing = TracingSettings{
		Endpoint:    tr.String("endpoint", ""),
		ServiceName: tr.String("service_name", "claudechat"),
	}
	return s, nil
}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// RequireAPIKey returns the API key or ErrMissingAPIKey.
func RequireAPIKey(getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	key := strings.TrimSpace(getenv(EnvAPIKey))
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}
