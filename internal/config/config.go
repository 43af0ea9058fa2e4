package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains connection settings for the podcast backend.
type Server struct {
	BaseURL        string `toml:"base_url"`
	LoginPath      string `toml:"login_path"`
	ChannelPath    string `toml:"channel_path"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Channel contains reconnect and transport settings for the push channel.
type Channel struct {
	MaxAttempts      int     `toml:"max_attempts"`
	BaseDelayMS      int     `toml:"base_delay_ms"`
	BackoffFactor    float64 `toml:"backoff_factor"`
	HandshakeTimeout int     `toml:"handshake_timeout"`
	ReadLimit        int64   `toml:"read_limit"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Conversion     bool   `toml:"conversion"`
	Podcast        bool   `toml:"podcast"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Paths contains local directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Config encapsulates all configuration values for podwatch.
//
// Configuration sections by subsystem:
//   - Server: backend base URL, login endpoint, and push-channel path
//   - Channel: reconnect attempts, backoff delays, handshake timeout
//   - Notifications: ntfy topic and per-category enablement
//   - Logging: log format and level
//   - Paths: data directory (session db, socket) and log directory
type Config struct {
	Server        Server        `toml:"server"`
	Channel       Channel       `toml:"channel"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Paths         Paths         `toml:"paths"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/podwatch/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for watcher operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionDBPath returns the location of the persisted session database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.DataDir, "session.db")
}

// SocketPath returns the location of the watcher IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "podwatch.sock")
}

// LockPath returns the location of the watcher single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "podwatch.lock")
}

// LoginURL returns the absolute URL of the credential login endpoint.
func (c *Config) LoginURL() (string, error) {
	base, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse server.base_url: %w", err)
	}
	return base.ResolveReference(&url.URL{Path: c.Server.LoginPath}).String(), nil
}

// ChannelURL returns the websocket URL of the push channel, derived from the
// server base URL (http becomes ws, https becomes wss).
func (c *Config) ChannelURL() (string, error) {
	base, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse server.base_url: %w", err)
	}
	endpoint := base.ResolveReference(&url.URL{Path: c.Server.ChannelPath})
	switch endpoint.Scheme {
	case "http":
		endpoint.Scheme = "ws"
	case "https":
		endpoint.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("server.base_url has unsupported scheme %q", endpoint.Scheme)
	}
	return endpoint.String(), nil
}

// RequestTimeout returns the REST request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
