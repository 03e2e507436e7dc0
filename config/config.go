// Package config manages application configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// FileName is the configuration file name searched for in the working
// directory and in the user config directory.
const FileName = "yucil.toml"

// Config holds all application configuration.
type Config struct {
	// ClientSecretPath locates the installed-app OAuth client descriptor.
	ClientSecretPath string `toml:"client_secret_path"`
	// TokenPath is where the authorized OAuth token is persisted.
	TokenPath string `toml:"token_path"`
	// SnapshotDBPath is the SQLite database recording fetched results.
	// Empty disables snapshots.
	SnapshotDBPath string `toml:"snapshot_db_path"`

	// TitlePrefix selects playlists by title (case-sensitive).
	TitlePrefix string `toml:"title_prefix"`
	// Paginate follows nextPageToken; false issues a single listing request.
	Paginate bool `toml:"paginate"`
	// MaxPages caps pagination when Paginate is set.
	MaxPages int `toml:"max_pages"`

	// AuthTimeoutSeconds bounds the interactive browser authorization wait.
	AuthTimeoutSeconds int `toml:"auth_timeout_seconds"`
	// RequestTimeoutSeconds bounds each HTTP request.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// RedirectAddr is the loopback address for the OAuth redirect listener.
	RedirectAddr string `toml:"redirect_addr"`
	// OpenBrowser launches the system browser for authorization; otherwise the
	// URL is only logged.
	OpenBrowser bool `toml:"open_browser"`
	// RevokeURL is the OAuth token revocation endpoint.
	RevokeURL string `toml:"revoke_url"`
	// AllowEdit requests the full youtube scope and enables the playlist
	// item editing commands. A credential granted read-only is replaced on
	// its first refused edit.
	AllowEdit bool `toml:"allow_edit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		ClientSecretPath:      "client_secret.json",
		TokenPath:             filepath.Join(defaultDataDir(), "token.json"),
		SnapshotDBPath:        filepath.Join(defaultDataDir(), "snapshots.db"),
		TitlePrefix:           "music-",
		Paginate:              true,
		MaxPages:              20,
		AuthTimeoutSeconds:    300,
		RequestTimeoutSeconds: 30,
		RedirectAddr:          "127.0.0.1:0",
		OpenBrowser:           true,
		RevokeURL:             "https://oauth2.googleapis.com/revoke",
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
//
// An explicit path must exist. Without one, ./yucil.toml and the user config
// directory are tried in order and a missing file is not an error. The
// returned string is the file that was read, empty when none was.
func Load(path string) (*Config, string, error) {
	cfg := DefaultConfig()

	used, err := cfg.loadFromFile(path)
	if err != nil {
		return nil, "", err
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, "", err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, used, nil
}

// loadFromFile decodes the first configuration file found over c.
func (c *Config) loadFromFile(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		explicit = expandHome(explicit)
		if err := c.decodeFile(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	for _, path := range searchPaths() {
		err := c.decodeFile(path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return "", err
	}
	return "", nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func searchPaths() []string {
	paths := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "yucil", FileName))
	}
	return paths
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("YUCIL_CLIENT_SECRET"); v != "" {
		c.ClientSecretPath = v
	}
	if v := os.Getenv("YUCIL_TOKEN_PATH"); v != "" {
		c.TokenPath = v
	}
	if v, ok := os.LookupEnv("YUCIL_SNAPSHOT_DB"); ok {
		c.SnapshotDBPath = v
	}
	if v := os.Getenv("YUCIL_TITLE_PREFIX"); v != "" {
		c.TitlePrefix = v
	}
	if v := os.Getenv("YUCIL_PAGINATE"); v != "" {
		c.Paginate = v == "true" || v == "1"
	}
	if v := os.Getenv("YUCIL_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("YUCIL_MAX_PAGES: %w", err)
		}
		c.MaxPages = n
	}
	if v := os.Getenv("YUCIL_AUTH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("YUCIL_AUTH_TIMEOUT: %w", err)
		}
		c.AuthTimeoutSeconds = int(d / time.Second)
	}
	if v := os.Getenv("YUCIL_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("YUCIL_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeoutSeconds = int(d / time.Second)
	}
	if v := os.Getenv("YUCIL_OPEN_BROWSER"); v != "" {
		c.OpenBrowser = v == "true" || v == "1"
	}
	if v := os.Getenv("YUCIL_ALLOW_EDIT"); v != "" {
		c.AllowEdit = v == "true" || v == "1"
	}
	if v := os.Getenv("YUCIL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("YUCIL_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

func (c *Config) normalize() {
	c.ClientSecretPath = expandHome(strings.TrimSpace(c.ClientSecretPath))
	c.TokenPath = expandHome(strings.TrimSpace(c.TokenPath))
	c.SnapshotDBPath = expandHome(strings.TrimSpace(c.SnapshotDBPath))
	c.RedirectAddr = strings.TrimSpace(c.RedirectAddr)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.ClientSecretPath == "" {
		return fmt.Errorf("client_secret_path must be set")
	}
	if c.TokenPath == "" {
		return fmt.Errorf("token_path must be set")
	}
	if c.TitlePrefix == "" {
		return fmt.Errorf("title_prefix must not be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be positive")
	}
	if c.AuthTimeoutSeconds <= 0 {
		return fmt.Errorf("auth_timeout_seconds must be positive")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	if c.RedirectAddr == "" {
		return fmt.Errorf("redirect_addr must be set")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// AuthTimeout returns the interactive authorization bound as a duration.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request bound as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// SampleConfig returns a commented configuration file.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path, refusing to
// overwrite an existing file.
func CreateSample(path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "yucil")
	}
	return ".yucil"
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
