package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateChannel(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url must be set")
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url is not a valid URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.base_url has unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("server.base_url must include a host")
	}
	return nil
}

func (c *Config) validateChannel() error {
	if c.Channel.BackoffFactor < 1 {
		return errors.New("channel.backoff_factor must be at least 1")
	}
	if c.Channel.MaxAttempts < 1 {
		return errors.New("channel.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
