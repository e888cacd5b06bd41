// Package config loads partflow.toml and resolves it against defaults,
// environment variables and CLI overrides.
package config
