package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GENDBUNTU_DB_DRIVER", "GENDBUNTU_DB_DSN", "GENDBUNTU_DOCUMENTS_DIR",
		"GENDBUNTU_NUMBERING_STRATEGY", "GENDBUNTU_SIDE_EFFECTS_MODE",
		"GENDBUNTU_LOG_LEVEL", "GENDBUNTU_LOG_FORMAT", "GENDBUNTU_WEBHOOK_URL",
		"DISCORD_WEBHOOK_URL", "GENDBUNTU_NUMBERING_MAX_ATTEMPTS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != filepath.Join(dir, ".gendbuntu", "gendbuntu.db") {
		t.Errorf("unexpected DSN %s", cfg.Database.DSN)
	}
	if cfg.Numbering.Strategy != "counter" || cfg.Numbering.MaxAttempts != 3 {
		t.Errorf("unexpected numbering %+v", cfg.Numbering)
	}
	if cfg.SideEffects.Mode != ModeInline {
		t.Errorf("expected inline side effects, got %s", cfg.SideEffects.Mode)
	}
	if cfg.Notifications.WebhookURL != "" {
		t.Error("expected notifications disabled by default")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg := Default(dir)
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://gendbuntu@localhost/gendbuntu?sslmode=disable"
	cfg.Notifications.WebhookURL = "https://discord.example/webhook"
	cfg.Notifications.Timeout = 3 * time.Second
	cfg.SideEffects.Mode = ModeBackground

	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Database != cfg.Database {
		t.Errorf("expected %+v, got %+v", cfg.Database, loaded.Database)
	}
	if loaded.Notifications != cfg.Notifications {
		t.Errorf("expected %+v, got %+v", cfg.Notifications, loaded.Notifications)
	}
	if loaded.SideEffects.Mode != ModeBackground {
		t.Errorf("expected background mode, got %s", loaded.SideEffects.Mode)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".gendbuntu"), 0755); err != nil {
		t.Fatal(err)
	}
	content := "numbering:\n  strategy: count\nnotifications:\n  timeout: 5s\n"
	if err := os.WriteFile(Path(dir), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Numbering.Strategy != "count" {
		t.Errorf("expected count strategy, got %s", cfg.Numbering.Strategy)
	}
	if cfg.Numbering.MaxAttempts != 3 {
		t.Errorf("expected default max_attempts, got %d", cfg.Numbering.MaxAttempts)
	}
	if cfg.Notifications.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Notifications.Timeout)
	}
	if cfg.Documents.Workers != 2 {
		t.Errorf("expected default workers, got %d", cfg.Documents.Workers)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("GENDBUNTU_DB_DRIVER", "postgres")
	t.Setenv("GENDBUNTU_DB_DSN", "postgres://localhost/test")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/legacy")
	t.Setenv("GENDBUNTU_LOG_LEVEL", "debug")
	t.Setenv("GENDBUNTU_NUMBERING_MAX_ATTEMPTS", "5")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/test" {
		t.Errorf("unexpected database %+v", cfg.Database)
	}
	if cfg.Notifications.WebhookURL != "https://discord.example/legacy" {
		t.Errorf("expected legacy webhook variable, got %s", cfg.Notifications.WebhookURL)
	}
	if cfg.Log.Level != "debug" || cfg.Numbering.MaxAttempts != 5 {
		t.Errorf("unexpected overrides %+v %+v", cfg.Log, cfg.Numbering)
	}

	t.Setenv("GENDBUNTU_WEBHOOK_URL", "https://discord.example/new")
	cfg, err = LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Notifications.WebhookURL != "https://discord.example/new" {
		t.Errorf("expected GENDBUNTU_WEBHOOK_URL to win, got %s", cfg.Notifications.WebhookURL)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown strategy", env: map[string]string{"GENDBUNTU_NUMBERING_STRATEGY": "random"}},
		{name: "unknown mode", env: map[string]string{"GENDBUNTU_SIDE_EFFECTS_MODE": "later"}},
		{name: "bad attempts", env: map[string]string{"GENDBUNTU_NUMBERING_MAX_ATTEMPTS": "many"}},
		{name: "bad yaml", file: "database: [oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				if err := os.MkdirAll(filepath.Dir(Path(dir)), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(Path(dir), []byte(tt.file), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := LoadConfig(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}
