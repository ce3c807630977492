package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Download    DownloadConfig    `toml:"download"`
	Index       IndexConfig       `toml:"index"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client-credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DownloadConfig controls localized downloads, retries and the ledger.
type DownloadConfig struct {
	Directory         string        `toml:"directory"`
	LedgerFile        string        `toml:"ledger_file"`
	MaxAttempts       int           `toml:"max_attempts"`
	BackoffMin        time.Duration `toml:"backoff_min"`
	BackoffMax        time.Duration `toml:"backoff_max"`
	CooldownMin       time.Duration `toml:"cooldown_min"`
	CooldownMax       time.Duration `toml:"cooldown_max"`
	SkipExisting      bool          `toml:"skip_existing"`
	TagFiles          bool          `toml:"tag_files"`
	DurationTolerance time.Duration `toml:"duration_tolerance"`
}

// IndexConfig contains yt-dlp settings.
type IndexConfig struct {
	Executable        string        `toml:"executable"`
	Format            string        `toml:"format"`
	SearchFormat      string        `toml:"search_format"`
	SocketTimeout     time.Duration `toml:"socket_timeout"`
	Retries           int           `toml:"retries"`
	CheckCertificates bool          `toml:"check_certificates"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultDownloadDir returns $HOME/SpotifyDownloads.
func DefaultDownloadDir() string {
	return filepath.Join(xdg.Home, "SpotifyDownloads")
}

// DownloadDir returns the configured download directory, falling back to [DefaultDownloadDir].
func (c *Config) DownloadDir() string {
	if c.Download.Directory == "" {
		return DefaultDownloadDir()
	}
	return c.Download.Directory
}

// LedgerPath returns the location of the ledger file, which lives alongside the downloads.
func (c *Config) LedgerPath() string {
	name := c.Download.LedgerFile
	if name == "" {
		name = "downloads.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DownloadDir(), name)
}

// HasSpotifyCredentials reports whether both client id and secret are set.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

// Validate checks value ranges that would otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	d := c.Download
	if d.MaxAttempts < 1 {
		return fmt.Errorf("%w: download.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if d.BackoffMin < 0 || d.BackoffMax < d.BackoffMin {
		return fmt.Errorf("%w: download.backoff_min must be <= backoff_max", ErrInvalidConfig)
	}
	if d.CooldownMin < 0 || d.CooldownMax < d.CooldownMin {
		return fmt.Errorf("%w: download.cooldown_min must be <= cooldown_max", ErrInvalidConfig)
	}
	if c.Index.Retries < 0 {
		return fmt.Errorf("%w: index.retries must not be negative", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FindConfigFile returns path if it exists, otherwise the first spotfetch/config.toml in the XDG config directories.
func FindConfigFile(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	found, err := xdg.SearchConfigFile(filepath.Join("spotfetch", "config.toml"))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	return found, nil
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

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
