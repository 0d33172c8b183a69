// Package config loads, normalizes, and validates the TOML
// configuration for viva. Secrets can be supplied through the config
// file, the environment, or a local .env file.
package config
