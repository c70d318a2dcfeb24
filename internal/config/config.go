// Package config loads the gendbuntu configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Side-effect execution modes.
const (
	ModeInline     = "inline"
	ModeBackground = "background"
)

// Config represents the gendbuntu configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Numbering     NumberingConfig     `yaml:"numbering"`
	Documents     DocumentsConfig     `yaml:"documents"`
	Notifications NotificationsConfig `yaml:"notifications"`
	SideEffects   SideEffectsConfig   `yaml:"side_effects"`
	Log           LogConfig           `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

type NumberingConfig struct {
	Strategy    string `yaml:"strategy"` // counter or count
	MaxAttempts int    `yaml:"max_attempts"`
}

type DocumentsConfig struct {
	Dir     string `yaml:"dir"`
	Workers int    `yaml:"workers"`
}

type NotificationsConfig struct {
	WebhookURL    string        `yaml:"webhook_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

type SideEffectsConfig struct {
	Mode    string `yaml:"mode"`
	Workers int    `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file exists.
// Paths are resolved against dir.
func Default(dir string) *Config {
	base := filepath.Join(dir, ".gendbuntu")
	return &Config{
		Database:  DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(base, "gendbuntu.db")},
		Numbering: NumberingConfig{Strategy: "counter", MaxAttempts: 3},
		Documents: DocumentsConfig{Dir: filepath.Join(base, "documents"), Workers: 2},
		Notifications: NotificationsConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 1,
			Burst:         2,
		},
		SideEffects: SideEffectsConfig{Mode: ModeInline, Workers: 4},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Path returns the config file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, ".gendbuntu", "config.yaml")
}

// LoadConfig reads .gendbuntu/config.yaml from dir on top of the defaults,
// then applies environment overrides. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(Path(dir))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.yaml to dir.
func SaveConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(Path(dir)), 0755); err != nil {
		return fmt.Errorf("failed to create .gendbuntu dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Numbering.Strategy {
	case "counter", "count":
	default:
		return fmt.Errorf("numbering.strategy must be counter or count, got %q", c.Numbering.Strategy)
	}
	switch c.SideEffects.Mode {
	case ModeInline, ModeBackground:
	default:
		return fmt.Errorf("side_effects.mode must be inline or background, got %q", c.SideEffects.Mode)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Numbering.MaxAttempts < 1 {
		return fmt.Errorf("numbering.max_attempts must be at least 1")
	}
	return nil
}

// applyEnv overrides settings from the environment.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("GENDBUNTU_DB_DRIVER", &cfg.Database.Driver)
	setString("GENDBUNTU_DB_DSN", &cfg.Database.DSN)
	setString("GENDBUNTU_DOCUMENTS_DIR", &cfg.Documents.Dir)
	setString("GENDBUNTU_NUMBERING_STRATEGY", &cfg.Numbering.Strategy)
	setString("GENDBUNTU_SIDE_EFFECTS_MODE", &cfg.SideEffects.Mode)
	setString("GENDBUNTU_LOG_LEVEL", &cfg.Log.Level)
	setString("GENDBUNTU_LOG_FORMAT", &cfg.Log.Format)

	// Legacy deployments set DISCORD_WEBHOOK_URL; the gendbuntu name wins.
	setString("DISCORD_WEBHOOK_URL", &cfg.Notifications.WebhookURL)
	setString("GENDBUNTU_WEBHOOK_URL", &cfg.Notifications.WebhookURL)

	if v := os.Getenv("GENDBUNTU_NUMBERING_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GENDBUNTU_NUMBERING_MAX_ATTEMPTS: %w", err)
		}
		cfg.Numbering.MaxAttempts = n
	}
	return nil
}
