// Package config provides configuration loading for finsight.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/finsight/internal/chat"
)

// Config is the full application configuration.
type Config struct {
	Backend  BackendConfig  `koanf:"backend"`
	Identity IdentityConfig `koanf:"identity"`
	Chat     ChatConfig     `koanf:"chat"`
	Log      LogConfig      `koanf:"log"`
	Watch    WatchConfig    `koanf:"watch"`
}

// BackendConfig points at the finance backend.
type BackendConfig struct {
	BaseURL string `koanf:"base_url"`
}

// IdentityConfig is the signed-in user. When either email or user_id
// is empty the TUI starts at the sign-in screen instead.
type IdentityConfig struct {
	Email  string `koanf:"email"`
	UserID string `koanf:"user_id"`
	Name   string `koanf:"name"`
}

// ChatConfig selects the reply backend for the assistant pane.
type ChatConfig struct {
	// Provider is "scripted" or "gemini".
	Provider string `koanf:"provider"`
	// Model is the gemini model name; ignored for scripted.
	Model string `koanf:"model"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File receives logs when the TUI owns stdout. Empty means stderr.
	File string `koanf:"file"`
}

// WatchConfig configures the statement drop folder.
type WatchConfig struct {
	Dir string `koanf:"dir"`
}

// Chat providers.
const (
	ProviderScripted = "scripted"
	ProviderGemini   = "gemini"
)

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://127.0.0.1:8000/api/v1"
	}
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = ProviderScripted
	}
	if cfg.Chat.Provider == ProviderGemini && cfg.Chat.Model == "" {
		cfg.Chat.Model = chat.DefaultGeminiModel
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Chat.Provider != ProviderScripted && c.Chat.Provider != ProviderGemini {
		return fmt.Errorf("chat provider must be %q or %q, got %q",
			ProviderScripted, ProviderGemini, c.Chat.Provider)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
