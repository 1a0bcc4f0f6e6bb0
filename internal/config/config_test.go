// ABOUTME: Tests for diary configuration loading and path expansion.
// ABOUTME: Covers YAML parsing, defaults, env overrides, and AI detection.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	// Set config path to a non-existent location
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.AI.APIKey != "" {
		t.Error("expected empty api_key in default config")
	}
	if cfg.Storage.Driver != "" {
		t.Error("expected empty storage driver in default config")
	}
	if cfg.HasAI() {
		t.Error("expected HasAI() to be false for default config")
	}
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "diary")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	writeConfig(t, `storage:
  driver: "diskv"
  path: "~/my-diary"
ai:
  base_url: "https://api.example.com/v1"
  api_key: "test-key"
  model: "gpt-test"
log:
  level: "debug"
  format: "json"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Driver != "diskv" {
		t.Errorf("expected driver 'diskv', got %q", cfg.Storage.Driver)
	}
	if cfg.AI.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.AI.APIKey)
	}
	if cfg.AI.BaseURL != "https://api.example.com/v1" {
		t.Errorf("expected base_url 'https://api.example.com/v1', got %q", cfg.AI.BaseURL)
	}
	if cfg.AI.Model != "gpt-test" {
		t.Errorf("expected model 'gpt-test', got %q", cfg.AI.Model)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if !cfg.HasAI() {
		t.Error("expected HasAI() to be true")
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "my-diary")
	if got, err := cfg.GetStoragePath(); err != nil {
		t.Fatalf("GetStoragePath() error: %v", err)
	} else if got != expected {
		t.Errorf("GetStoragePath() = %q, want %q", got, expected)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfig(t, `storage:
  driver: "badger"
ai:
  api_key: "file-key"
  model: "file-model"
`)
	t.Setenv("DIARY_STORAGE_DRIVER", "diskv")
	t.Setenv("DIARY_AI_API_KEY", "env-key")
	t.Setenv("DIARY_LOG_LEVEL", "info")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Driver != "diskv" {
		t.Errorf("expected env driver 'diskv', got %q", cfg.Storage.Driver)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Errorf("expected env api_key, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "file-model" {
		t.Errorf("unset env var must keep file value, got %q", cfg.AI.Model)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Log.Level)
	}

	raw, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if raw.AI.APIKey != "file-key" {
		t.Errorf("LoadFile() must ignore env, got %q", raw.AI.APIKey)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg := &Config{
		AI: AIConfig{
			APIKey:  "saved-key",
			BaseURL: "https://saved.example.com/v1",
			Model:   "saved-model",
		},
		Storage: StorageConfig{
			Path: "~/saved-diary",
		},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "diary", "config.yaml"))
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if loaded.AI.APIKey != "saved-key" {
		t.Errorf("expected api_key 'saved-key', got %q", loaded.AI.APIKey)
	}
	if loaded.Storage.Path != "~/saved-diary" {
		t.Errorf("expected path '~/saved-diary', got %q", loaded.Storage.Path)
	}
}

func TestDefaultStoragePath(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg := &Config{}
	got, err := cfg.GetStoragePath()
	if err != nil {
		t.Fatalf("GetStoragePath() error: %v", err)
	}
	expected := filepath.Join(dataHome, "diary")
	if got != expected {
		t.Errorf("GetStoragePath() = %q, want %q", got, expected)
	}
}
