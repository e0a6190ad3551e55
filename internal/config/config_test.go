package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected default config file to be created: %v", err)
	}
	if cfg.Server.Port != "8572" || cfg.Player.Backend != "local" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = "9000"
host = "0.0.0.0"

[player]
backend = "remote"
poll_interval_ms = 250
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "9000" || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Unexpected server config: %+v", cfg.Server)
	}
	if cfg.Player.Backend != "remote" || cfg.Player.PollMs != 250 {
		t.Errorf("Unexpected player config: %+v", cfg.Player)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Bridge.Binary != "playerctl" {
		t.Errorf("Expected default bridge binary, got %q", cfg.Bridge.Binary)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyPort", func(c *Config) { c.Server.Port = "" }},
		{"UnknownBackend", func(c *Config) { c.Player.Backend = "cassette" }},
		{"PollTooFast", func(c *Config) { c.Player.PollMs = 50 }},
		{"EmptyBridgeBinary", func(c *Config) { c.Bridge.Binary = "" }},
		{"BadRedirectPort", func(c *Config) { c.Spotify.RedirectPort = 0 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
		{"HistoryWithoutPath", func(c *Config) {
			c.History.Enabled = true
			c.History.Path = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[player]
backend = "cassette"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid backend")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Port = "9999"
	cfg.Player.Backend = "remote"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Server.Port != "9999" || loaded.Player.Backend != "remote" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Baton Configuration") {
		t.Error("Expected header comment at the top of the saved file")
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetAddress(); got != "127.0.0.1:8572" {
		t.Errorf("GetAddress() = %q", got)
	}
}

func TestRedirectURI(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.RedirectURI(); got != "http://127.0.0.1:8573/callback" {
		t.Errorf("RedirectURI() = %q", got)
	}
}
