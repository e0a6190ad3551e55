package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Player  PlayerConfig  `toml:"player"`
	Bridge  BridgeConfig  `toml:"bridge"`
	Spotify SpotifyConfig `toml:"spotify"`
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
	Ngrok   NgrokConfig   `toml:"ngrok"`
	Discord DiscordConfig `toml:"discord"`
}

// ServerConfig contains the HTTP control surface configuration
type ServerConfig struct {
	Port           string `toml:"port"`
	Host           string `toml:"host"`
	EnableCORS     bool   `toml:"enable_cors"`
	ReadTimeout    int    `toml:"read_timeout_seconds"`
	PasswordBcrypt string `toml:"password_bcrypt"`
}

// PlayerConfig selects the active backend and poll cadence
type PlayerConfig struct {
	Backend      string `toml:"backend"` // "local" or "remote"
	PollMs       int    `toml:"poll_interval_ms"`
	ProbeFiles   bool   `toml:"probe_local_files"`
	ArtworkTTLMs int    `toml:"artwork_cache_ttl_ms"`
}

// BridgeConfig contains the playerctl bridge configuration
type BridgeConfig struct {
	Binary string `toml:"binary"`
	Player string `toml:"player"` // empty = playerctl's default selection
}

// SpotifyConfig contains the remote backend configuration
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	RedirectPort int    `toml:"redirect_port"`
	TokenFile    string `toml:"token_file"`
}

// HistoryConfig contains playback history configuration
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DiscordConfig contains Discord Rich Presence configuration
type DiscordConfig struct {
	Enabled       bool   `toml:"enabled"`
	ApplicationID string `toml:"application_id"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8572",
			Host:        "127.0.0.1",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Player: PlayerConfig{
			Backend:      "local",
			PollMs:       1000,
			ProbeFiles:   true,
			ArtworkTTLMs: 15 * 60 * 1000,
		},
		Bridge: BridgeConfig{
			Binary: "playerctl",
		},
		Spotify: SpotifyConfig{
			RedirectPort: 8573,
			TokenFile:    filepath.Join(xdg.ConfigHome, "baton", "tokens.json"),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(xdg.DataHome, "baton", "history.db"),
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: false,
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
		Discord: DiscordConfig{
			Enabled:       false,
			ApplicationID: "",
		},
	}
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "baton", "config.toml")
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Baton Configuration
# Baton bridges a local media player (via playerctl) and Spotify behind one
# HTTP control surface. Edit the values below to customize the daemon.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Validate player config
	if c.Player.Backend != "local" && c.Player.Backend != "remote" {
		return fmt.Errorf("invalid player backend: %s (must be local or remote)", c.Player.Backend)
	}
	if c.Player.PollMs < 100 {
		return fmt.Errorf("poll interval must be at least 100ms")
	}

	// Validate bridge config
	if c.Bridge.Binary == "" {
		return fmt.Errorf("bridge binary cannot be empty")
	}

	// Validate spotify config
	if c.Spotify.RedirectPort < 1 || c.Spotify.RedirectPort > 65535 {
		return fmt.Errorf("invalid spotify redirect port: %d", c.Spotify.RedirectPort)
	}

	// Validate history config
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history path cannot be empty when history is enabled")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RedirectURI returns the loopback OAuth redirect URI
func (c *Config) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", c.Spotify.RedirectPort)
}
