// Package config loads and validates application settings from defaults, an
// optional YAML file, a .env file and SCRY_-prefixed environment variables.
// Components receive the group they need (ServerConfig, RetryConfig, ...)
// rather than the whole Config.
package config
