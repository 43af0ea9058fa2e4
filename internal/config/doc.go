// Package config loads, normalizes, and validates podwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// watcher and CLI need: server endpoints, push-channel retry behavior,
// notification routing, and local data locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
