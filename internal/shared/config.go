package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Service     ServiceConfig     `toml:"service"`
	Download    DownloadConfig    `toml:"download"`
	Upload      UploadConfig      `toml:"upload"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig controls where cached credentials are stored.
type CredentialsConfig struct {
	Name     string `toml:"name"`      // credential file stem, e.g. "oauth"
	Dir      string `toml:"dir"`       // defaults to ~/.gmsync
	DeviceID string `toml:"device_id"` // uploader/device id as a MAC address
}

// ServiceConfig contains music service API settings.
type ServiceConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second
}

// DownloadConfig tunes the download worker pool.
type DownloadConfig struct {
	Workers         int     `toml:"workers"`
	MaxRetries      int     `toml:"max_retries"`
	RetryCooldown   float64 `toml:"retry_cooldown_seconds"`
	RetryExponent   float64 `toml:"retry_exponent"`
	SizeTolerance   float64 `toml:"size_tolerance"` // allowed relative size diff for skip-existing
	ModifyTags      bool    `toml:"modify_tags"`
	PlaylistCharset string  `toml:"playlist_charset"`
}

// UploadConfig tunes the upload worker pool.
type UploadConfig struct {
	Workers    int `toml:"workers"`
	MaxRetries int `toml:"max_retries"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
